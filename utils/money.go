package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a coin amount as a currency string using the period's
// coin rate (coins per currency unit), e.g. 12345678 coins at rate 10000
// becomes "1,234.56". Truncates, never rounds up.
func FormatMoney(coins, coinRate int64) string {
	if coinRate <= 0 {
		coinRate = 1
	}
	whole := coins / coinRate
	frac := (coins % coinRate) * 100 / coinRate
	if frac < 0 {
		frac = -frac
	}
	if coins < 0 && whole == 0 {
		return moneyPrinter.Sprintf("-%d.%02d", whole, frac)
	}
	return moneyPrinter.Sprintf("%d.%02d", whole, frac)
}
