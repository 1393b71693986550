package contract

import (
	"encoding/json"
	"errors"
	"math/bits"
	"strconv"
	"strings"

	"okinoko-button_game/sdk"
)

// ---------- JSON Conversions ----------

func ToJSON[T any](v T, objectType string) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, newError(CodeInvalidArgs, "failed to marshal %s: %v", objectType, err)
	}
	s := string(b)
	return &s, nil
}

// ---------- Address Helpers ----------

// maxAddressLen caps every address the contract stores.
const maxAddressLen = 256

func checkAddress(addr sdk.Address, field string) error {
	if addr == "" {
		return newError(CodeInvalidArgs, "%s required", field)
	}
	if len(addr) > maxAddressLen {
		return newError(CodeInvalidArgs, "%s longer than %d bytes", field, maxAddressLen)
	}
	return nil
}

// ---------- UInt/String Helpers ----------

func UInt64ToString(val uint64) string {
	return strconv.FormatUint(val, 10)
}

// parseU64 parses a base-10 unsigned integer, rejecting empty input,
// signs and anything that does not fit 64 bits.
func parseU64(s string, field string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, newError(CodeInvalidArgs, "invalid %s %q", field, s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, newError(CodeInvalidArgs, "invalid bool %q", s)
}

// addU64 adds two amounts and rejects wrap-around.
func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// mulBps returns v * bps / 10000 without intermediate overflow.
// bps never exceeds the denominator, so the quotient fits 64 bits.
func mulBps(v uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(v, uint64(bps))
	q, _ := bits.Div64(hi, lo, bpsDenominator)
	return q
}

// ---------- Parsing Helpers ----------

// nextField pops the next '|' separated field off s.
func nextField(s *string) string {
	i := strings.IndexByte(*s, '|')
	if i < 0 {
		f := *s
		*s = ""
		return f
	}
	f := (*s)[:i]
	*s = (*s)[i+1:]
	return f
}

// parseFixedPoint3 parses a decimal string with up to 3 fractional digits
// and returns an integer scaled by 1000 (e.g., "1.23" -> 1230).
func parseFixedPoint3(s string) (uint64, error) {
	v, err := sdk.ParseAmount(s)
	switch {
	case errors.Is(err, sdk.ErrAmountOverflow):
		return 0, ErrOverflow
	case err != nil:
		return 0, newError(CodeInvalidArgs, "%v", err)
	}
	return v, nil
}

func formatFixedPoint3(v uint64) string { return sdk.FormatAmount(v) }

// ---------- Transfer Intent Helpers ----------

type transferAllow struct {
	Limit uint64
	Token sdk.Asset
}

var validAssets = []sdk.Asset{sdk.AssetHive, sdk.AssetHbd}

func isValidAsset(token sdk.Asset) bool {
	for _, a := range validAssets {
		if token == a {
			return true
		}
	}
	return false
}

// transferAllowFor returns the first transfer.allow intent for asset, or nil
// when the caller attached none. Intents for other tokens are ignored.
func transferAllowFor(intents []sdk.Intent, asset sdk.Asset) (*transferAllow, error) {
	for _, intent := range intents {
		if intent.Type != "transfer.allow" || sdk.Asset(intent.Args["token"]) != asset {
			continue
		}
		limit, err := parseFixedPoint3(intent.Args["limit"])
		if err != nil {
			return nil, newError(CodeInvalidPayment, "invalid intent limit %q", intent.Args["limit"])
		}
		return &transferAllow{Limit: limit, Token: asset}, nil
	}
	return nil, nil
}

// requireExactPayment checks that the call carries an allowance of exactly
// amount in asset. Over- and underpayment are both rejected.
func requireExactPayment(c Chain, amount uint64, asset sdk.Asset) error {
	ta, err := transferAllowFor(c.GetEnv().Intents, asset)
	if err != nil {
		return err
	}
	if ta == nil {
		return newError(CodeInvalidPayment, "payment of %s %s required", formatFixedPoint3(amount), asset)
	}
	if ta.Limit != amount {
		return newError(CodeInvalidPayment, "payment must be exactly %s %s, got %s",
			formatFixedPoint3(amount), asset, formatFixedPoint3(ta.Limit))
	}
	return nil
}

// ---------- Time Helpers ----------

var errBadTimestamp = errors.New("expected YYYY-MM-DDThh:mm:ss")

// parseISO8601ToUnix parses "YYYY-MM-DDThh:mm:ss" UTC format into UNIX seconds.
func parseISO8601ToUnix(s string) (uint64, error) {
	if len(s) < 19 || s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' || s[16] != ':' {
		return 0, errBadTimestamp
	}
	for _, i := range [...]int{0, 1, 2, 3, 5, 6, 8, 9, 11, 12, 14, 15, 17, 18} {
		if s[i] < '0' || s[i] > '9' {
			return 0, errBadTimestamp
		}
	}
	year := strToUint16Fast(s[0:4])
	month := strToUint8Fast(s[5:7])
	day := strToUint8Fast(s[8:10])
	hour := strToUint8Fast(s[11:13])
	minute := strToUint8Fast(s[14:16])
	second := strToUint8Fast(s[17:19])
	if year < 1970 || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return 0, errBadTimestamp
	}

	days := daysSinceUnixEpoch(year, month, day)
	return days*86400 + uint64(hour)*3600 + uint64(minute)*60 + uint64(second), nil
}

func strToUint16Fast(s string) uint16 {
	var n uint16
	for i := 0; i < len(s); i++ {
		n = n*10 + uint16(s[i]-'0')
	}
	return n
}

func strToUint8Fast(s string) uint8 {
	var n uint8
	for i := 0; i < len(s); i++ {
		n = n*10 + uint8(s[i]-'0')
	}
	return n
}

func isLeapYear(year uint16) bool {
	y := int(year)
	return (y%4 == 0 && y%100 != 0) || (y%400 == 0)
}

func daysSinceUnixEpoch(year uint16, month uint8, day uint8) uint64 {
	y := int(year) - 1970
	days := uint64(y * 365)
	days += uint64((y+1)/4 - (y+69)/100 + (y+369)/400)

	var monthDays = [12]uint8{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for i := uint8(1); i < month; i++ {
		days += uint64(monthDays[i-1])
		if i == 2 && isLeapYear(year) {
			days++
		}
	}

	return days + uint64(day-1)
}
