package dataprocessing

import (
	"regexp"
	"strconv"

	"mktyield/pkg/contracts/domain"
)

var (
	// tenorPattern matches labels such as 3M, 2W, 1D or 10Y
	tenorPattern = regexp.MustCompile(`^(\d+)([DWMY])$`)
	// futuresPattern matches contract codes such as EDZ24
	futuresPattern = regexp.MustCompile(`^[A-Z]{3}\d{2}$`)
)

// Classify infers the market type of a tenor, term or maturity label.
//
// Day, week and month tenors and sub-year year tenors are money market.
// Three capital letters followed by two digits is a futures code.
// Everything else, including year tenors of one or more and labels that
// cannot be parsed, is Other. Labels are classified exactly as given.
func Classify(label string) domain.MarketType {
	if m := tenorPattern.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch m[2] {
			case "D", "W", "M":
				return domain.MarketTypeMoneyMarket
			case "Y":
				if n < 1 {
					return domain.MarketTypeMoneyMarket
				}
			}
		}
	}

	if futuresPattern.MatchString(label) {
		return domain.MarketTypeFutures
	}

	return domain.MarketTypeOther
}
