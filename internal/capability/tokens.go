package capability

import (
	"time"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer used for server-side estimates.
const DefaultEncoding = "cl100k_base"

// tokensTimeout bounds loading the encoding, which may download its BPE file.
var tokensTimeout = 5 * time.Second

// TokenEstimator approximates the token count of a text.
type TokenEstimator interface {
	Count(text string) int
}

// CharEstimator assumes four characters per token, rounding up.
type CharEstimator struct{}

// Count returns ceil(runes/4).
func (CharEstimator) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

type tiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenEstimator) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ResolveTokens loads the named BPE encoding, falling back to CharEstimator
// when loading fails or outlasts tokensTimeout.
func ResolveTokens(r *Report, encoding string) TokenEstimator {
	return ResolveWithin(r, Tokens, tokensTimeout,
		func() (TokenEstimator, error) {
			enc, err := tiktoken.GetEncoding(encoding)
			if err != nil {
				return nil, err
			}
			return tiktokenEstimator{enc: enc}, nil
		},
		func() TokenEstimator { return CharEstimator{} },
	)
}
