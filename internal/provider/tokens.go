package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
	encoderMu   sync.Mutex
)

// estimateTokens counts tokens with the cl100k_base encoding, which is a
// close approximation for all supported providers. When the encoding data
// is unavailable it falls back to the 1 token ≈ 4 characters rule.
func estimateTokens(text string) int {
	encoderOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = tkm
		}
	})
	if encoder == nil {
		return len(text) / 4
	}
	encoderMu.Lock()
	defer encoderMu.Unlock()
	return len(encoder.Encode(text, nil, nil))
}
