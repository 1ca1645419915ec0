// Package echo implements the application tasks on top of a uart.Driver:
// the receiver echoing case swapped bytes and watching for control
// sequences, and the reporter printing the counters.
package echo

// Banner is printed when the system starts.
const Banner = "\n====== App Ready ======\n" +
	"Instructions:\n" +
	"- Send data via serial terminal, letters are echoed with case swapped.\n" +
	"  (Numbers/symbols unchanged).\n" +
	"- To view interrupt count, type: '\\r#\\r'\n" +
	"- To reset interrupt count, type: '\\r%\\r'\n" +
	"- BTN0: Display Rx interrupt count on SSD.\n" +
	"- BTN1: Display Tx interrupt count on SSD.\n" +
	"- BTN2: Display byte count on SSD.\n" +
	"- BTN3: Reset interrupt and byte count.\n" +
	"========================\n"

// Transform swaps the case of ASCII letters, other bytes are unchanged.
func Transform(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z':
		return b - 'a' + 'A'
	case b >= 'A' && b <= 'Z':
		return b - 'A' + 'a'
	}
	return b
}
