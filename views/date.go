package views

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type dateLocale struct {
	months [12]string
	format func(day int, month string, year int) string
}

var locales = []dateLocale{
	{
		months: [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		format: func(d int, m string, y int) string { return fmt.Sprintf("%02d %s %d", d, m, y) },
	},
	{
		months: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		format: func(d int, m string, y int) string { return fmt.Sprintf("%s %d, %d", m, d, y) },
	},
}

// index order matches locales; the first entry is the fallback
var localeMatcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
})

// matchLocale picks the date locale closest to tag, such as "pt-BR" or "en".
func matchLocale(tag string) int {
	t, err := language.Parse(tag)
	if err != nil {
		return 0
	}
	_, idx, conf := localeMatcher.Match(t)
	if conf == language.No {
		return 0
	}
	return idx
}

// FormatDate renders a publication date for display, "02 jan 2021" for
// pt-BR. A nil date renders as an empty string.
func FormatDate(t *time.Time, loc *time.Location, locale string) string {
	if t == nil {
		return ""
	}
	return formatDate(*t, loc, locales[matchLocale(locale)])
}

func formatDate(t time.Time, loc *time.Location, l dateLocale) string {
	if loc != nil {
		t = t.In(loc)
	}
	return l.format(t.Day(), l.months[t.Month()-1], t.Year())
}
