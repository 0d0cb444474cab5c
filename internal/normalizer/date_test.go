package normalizer

import (
	"testing"
	"time"
)

func TestDateParser_Parse(t *testing.T) {
	p := NewDateParser(testMappings(t))

	tests := []struct {
		name       string
		raw        string
		want       string
		wantStatus string
	}{
		{"day first slash", "05/03/2024", "2024-03-05", DateValid},
		{"day first dash", "15-03-2024", "2024-03-15", DateValid},
		{"month first fallback", "12/25/2024", "2024-12-25", DateValid},
		{"iso", "2024-03-05", "2024-03-05", DateValid},
		{"iso with time", "2024-03-05 14:30:00", "2024-03-05", DateValid},
		{"english month", "5 Mar 2024", "2024-03-05", DateValid},
		{"english month lower", "march 5, 2024", "2024-03-05", DateValid},
		{"arabic month", "15 مارس 2024", "2024-03-15", DateValid},
		{"arabic month and digits", "١٥ أكتوبر ٢٠٢٤", "2024-10-15", DateValid},
		{"arabic month dashes", "3-يناير-2024", "2024-01-03", DateValid},
		{"excel serial", "45366", "2024-03-15", DateValid},
		{"blank", "", "", DateMissing},
		{"nat", "NaT", "", DateMissing},
		{"garbage", "not a date", "", DateUnparseable},
		{"impossible", "31/02/2024", "", DateUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status := p.Parse(tt.raw)
			if status != tt.wantStatus {
				t.Fatalf("Parse(%q) status = %s, want %s", tt.raw, status, tt.wantStatus)
			}

			if tt.want == "" {
				if got != nil {
					t.Errorf("Parse(%q) = %v, want absent", tt.raw, got)
				}

				return
			}

			if got == nil || got.Format(time.DateOnly) != tt.want {
				t.Errorf("Parse(%q) = %v, want %s", tt.raw, got, tt.want)
			}
		})
	}
}
