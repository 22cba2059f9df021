package experiment

import "hash/fnv"

// AssignVariant deterministically buckets a user into variant A or B for an
// experiment. The assignment is a pure function of the two ids, so no
// assignment table is needed and repeated calls always agree.
func AssignVariant(experimentID, userID string) string {
	h := fnv.New32a()
	h.Write([]byte(experimentID))
	h.Write([]byte(":"))
	h.Write([]byte(userID))
	if h.Sum32()%2 == 0 {
		return "A"
	}
	return "B"
}
