package decode

import (
	"testing"

	"github.com/statwatch-io/statwatch/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		digits     string
		hasLocator bool
		want       domain.StatusColor
	}{
		{name: "sum 8 is green", digits: "222200000000", hasLocator: true, want: domain.StatusGreen},
		{name: "sum 9 is yellow", digits: "222210000000", hasLocator: true, want: domain.StatusYellow},
		{name: "sum 12 is yellow", digits: "333300000000", hasLocator: true, want: domain.StatusYellow},
		{name: "sum 13 is red", digits: "333310000000", hasLocator: true, want: domain.StatusRed},
		{name: "compact all nominal", digits: "11114444", hasLocator: true, want: domain.StatusGreen},
		{name: "compact degraded", digits: "22224444", hasLocator: true, want: domain.StatusYellow},
		{name: "compact severe", digits: "33334444", hasLocator: true, want: domain.StatusRed},
		{name: "digits above three weigh one", digits: "99999999", hasLocator: true, want: domain.StatusGreen},
		{name: "no locator overrides digits", digits: "33334444", hasLocator: false, want: domain.StatusUnknown},
		{name: "empty digits with locator", digits: "", hasLocator: true, want: domain.StatusGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStatus(tt.digits, tt.hasLocator)
			if got != tt.want {
				t.Errorf("ClassifyStatus(%q, %v) got = %v, want %v", tt.digits, tt.hasLocator, got, tt.want)
			}
		})
	}
}
