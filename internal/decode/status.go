package decode

import "github.com/statwatch-io/statwatch/internal/domain"

// ClassifyStatus sums the severities of a packed digit string and maps the
// sum onto a status color. Digits 0 through 3 contribute their face value;
// anything else means "not reported" and weighs 1, the same as a nominal
// report. A report without a usable locator is always Unknown regardless of
// its digits.
//
// The color bands are fixed: a sum up to 8 is Green, 9 through 12 is
// Yellow, above 12 is Red.
func ClassifyStatus(digits string, hasLocator bool) domain.StatusColor {
	if !hasLocator {
		return domain.StatusUnknown
	}
	sum := 0
	for i := 0; i < len(digits); i++ {
		if d := digits[i]; d >= '0' && d <= '3' {
			sum += int(d - '0')
		} else {
			sum++
		}
	}
	switch {
	case sum <= 8:
		return domain.StatusGreen
	case sum <= 12:
		return domain.StatusYellow
	default:
		return domain.StatusRed
	}
}
