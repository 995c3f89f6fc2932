package common

import (
	"fmt"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorWarning = 0xFEE75C // Yellow
)

// FormatBalance formats a wei amount with thousand separators
func FormatBalance(balance int64) string {
	if balance < 0 {
		return "-" + FormatBalance(-balance)
	}
	str := fmt.Sprintf("%d", balance)

	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatEther renders a wei amount in ether, without trailing zeros
func FormatEther(wei int64) string {
	sign := ""
	if wei < 0 {
		sign = "-"
		wei = -wei
	}

	whole := wei / params.Ether
	frac := wei % params.Ether
	if frac == 0 {
		return fmt.Sprintf("%s%d ETH", sign, whole)
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%018d", frac), "0")
	return fmt.Sprintf("%s%d.%s ETH", sign, whole, fracStr)
}

// ShortAddress abbreviates an address to its first and last four hex digits
func ShortAddress(address ethcommon.Address) string {
	hex := address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
