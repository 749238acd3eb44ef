package project

import "strings"

// ToScreenCodes converts ASCII text to ANTIC Mode 2 internal screen
// codes, truncated/padded to 40 columns:
//
//	ASCII $20-$5F -> screen code $00-$3F (space through underscore)
//	ASCII $60-$7F -> screen code $60-$7F (lowercase, unchanged)
//	anything else -> $00
func ToScreenCodes(text string) [40]byte {
	var codes [40]byte
	for i, r := range []byte(text) {
		if i >= 40 {
			break
		}
		switch {
		case r >= 0x20 && r <= 0x5F:
			codes[i] = r - 0x20
		case r >= 0x60 && r <= 0x7F:
			codes[i] = r
		default:
			codes[i] = 0x00
		}
	}
	return codes
}

// FormatInfoLine renders the 40-column splash info line: channel count,
// sample rate, compression mode, and total RAM required.
func FormatInfoLine(pokeyChannels int, sampleRate float64, compressMode string, vecSize int, ramKB int) string {
	chStr := itoa(pokeyChannels) + "CH"
	rateStr := itoa(int(sampleRate+0.5)) + "HZ"

	var compStr string
	switch compressMode {
	case "vq":
		compStr = "VQ" + itoa(vecSize)
	case "lz":
		compStr = "DELTALZ"
	default:
		compStr = "RAW"
	}

	ramStr := itoa(ramKB) + "KB"
	line := strings.ToUpper(chStr + "  " + rateStr + "  " + compStr + "  " + ramStr)
	return center(line, 40)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// center pads s with spaces to width, biasing the extra space (if any)
// to the right, matching Python str.center, then truncates to width.
func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
