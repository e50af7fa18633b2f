package filter

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

const (
	Simple                 = "SIMPLE"
	BlankDescription       = "BLANK_DESCRIPTION"
	CVEMatchesDescription  = "CVE_MATCHES_DESCRIPTION"
	IntegerDescription     = "INTEGER_DESCRIPTION"
	MultipleCVEDescription = "MULTIPLE_CVE_DESCRIPTION"
	DescriptionSize        = "DESCRIPTION_SIZE"
	CharacterProportion    = "CHARACTER_PROPORTION"
	GPT                    = "GPT"
)

const (
	MinDescriptionLength = 10
	MaxDescriptionLength = 1000

	// MaxDigitProportion is the largest share of digits a description may have.
	MaxDigitProportion = 0.75
)

var multipleCVEPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^CVE-\d{4}-\d{4,5}, GHSA-\w{4}-\w{4}-\w{4}$`),
	regexp.MustCompile(`^CVE-\d{4}-\d{4,5}, GHSA-\w{4}-\w{4}-\w{4}, and \d more$`),
	regexp.MustCompile(`^CVE-\d{4}-\d{4,5}, CVE-\d{4}-\d{4,5}, and \d more$`),
}

func local(name string, fn func(desc string, r *types.Record) bool) Filter {
	return Func(name, func(_ context.Context, r *types.Record) (bool, error) {
		return fn(strings.TrimSpace(r.Description), r), nil
	})
}

var locals = map[string]Filter{
	Simple: local(Simple, func(string, *types.Record) bool {
		return true
	}),
	BlankDescription: local(BlankDescription, func(desc string, _ *types.Record) bool {
		return desc != ""
	}),
	CVEMatchesDescription: local(CVEMatchesDescription, func(desc string, r *types.Record) bool {
		return desc != strings.TrimSpace(r.CVEID)
	}),
	IntegerDescription: local(IntegerDescription, func(desc string, _ *types.Record) bool {
		_, err := strconv.Atoi(desc)
		return err != nil
	}),
	MultipleCVEDescription: local(MultipleCVEDescription, func(desc string, _ *types.Record) bool {
		for _, p := range multipleCVEPatterns {
			if p.MatchString(desc) {
				return false
			}
		}
		return true
	}),
	DescriptionSize: local(DescriptionSize, func(desc string, _ *types.Record) bool {
		n := utf8.RuneCountInString(desc)
		return n >= MinDescriptionLength && n <= MaxDescriptionLength
	}),
	CharacterProportion: local(CharacterProportion, func(desc string, _ *types.Record) bool {
		var total, digits int
		for _, c := range desc {
			total++
			if unicode.IsDigit(c) {
				digits++
			}
		}
		return total == 0 || float64(digits)/float64(total) <= MaxDigitProportion
	}),
}

// New returns the local filter called name. GPT needs a model and is built by the classifier package.
func New(name string) (Filter, error) {
	f, ok := locals[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("unknown filter %q", name)
	}
	return f, nil
}

// LocalFilters returns the default local chain, cheapest checks first.
func LocalFilters() []Filter {
	return []Filter{
		locals[BlankDescription],
		locals[CVEMatchesDescription],
		locals[IntegerDescription],
		locals[MultipleCVEDescription],
		locals[DescriptionSize],
		locals[CharacterProportion],
	}
}
