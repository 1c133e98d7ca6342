package capability

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator mints conversation identifiers.
type IDGenerator interface {
	NewID() string
}

const idTemplate = "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx"

const hexDigits = "0123456789abcdef"

// TemplateGenerator fills a v4-shaped template with pseudo-random hex digits.
// It is the fallback when the system random source is unusable.
type TemplateGenerator struct{}

// NewID returns a 36-character v4-shaped identifier.
func (TemplateGenerator) NewID() string {
	var b strings.Builder
	b.Grow(len(idTemplate))
	for _, ch := range idTemplate {
		switch ch {
		case 'x':
			b.WriteByte(hexDigits[rand.IntN(16)])
		case 'y':
			b.WriteByte(hexDigits[8+rand.IntN(4)])
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// UUIDGenerator mints RFC 4122 v4 identifiers, dropping to the template
// generator for any call where the random source fails.
type UUIDGenerator struct {
	fallback TemplateGenerator
}

// NewID returns a random v4 UUID.
func (g UUIDGenerator) NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return g.fallback.NewID()
	}
	return id.String()
}

// ResolveIDs probes the UUID generator once.
func ResolveIDs(r *Report) IDGenerator {
	return Resolve(r, IDs,
		func() (IDGenerator, error) {
			if _, err := uuid.NewRandom(); err != nil {
				return nil, err
			}
			return UUIDGenerator{}, nil
		},
		func() IDGenerator { return TemplateGenerator{} },
	)
}
