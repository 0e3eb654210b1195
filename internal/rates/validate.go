package rates

import "github.com/rickgao/altrates/internal/model"

// Tolerance band for candidate/reference ratios. Both bounds pass.
const (
	MinRatio = 0.9
	MaxRatio = 1.1
)

// Validate cross-checks every altcoin/fiat rate present in both candidate and
// reference. The first ratio outside [MinRatio, MaxRatio] is returned as a
// *ConsistencyError. Pairs missing on either side are not checked.
func Validate(candidate, reference Table, cs model.Currencies) error {
	for _, fiat := range cs.Fiats() {
		for _, alt := range cs.Altcoins() {
			got, ok := candidate.Get(alt, fiat)
			if !ok {
				continue
			}
			want, ok := reference.Get(alt, fiat)
			if !ok || want == 0 {
				continue
			}

			ratio := got / want
			if ratio < MinRatio || ratio > MaxRatio {
				return &ConsistencyError{
					Altcoin:   alt,
					Fiat:      fiat,
					Candidate: got,
					Reference: want,
				}
			}
		}
	}
	return nil
}
