package decode

import "fmt"

// hourLetters maps each UTC hour to a letter. The alphabet runs A through Y
// with O skipped so the letter can never be mistaken for a zero.
const hourLetters = "ABCDEFGHIJKLMNPQRSTUVWXY"

// Ident derives the report identifier for a UTC wall-clock position: the
// hour's letter followed by the zero-padded minute ("N30" for 13:30). Two
// frames in the same UTC minute share an identifier; resolving that is the
// archive's concern, not this function's.
func Ident(hour, minute int) string {
	return fmt.Sprintf("%c%02d", hourLetters[hour], minute)
}
