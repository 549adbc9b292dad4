package transcribe

import "strings"

// numeralToDigit maps characters the engines produce for spoken digits to
// ASCII digits. The portal reads the challenge in Mandarin, so Chinese
// numerals dominate; fullwidth digits and a couple of recurring
// misrecognitions are covered as well.
var numeralToDigit = map[rune]rune{
	'0': '0', '1': '1', '2': '2', '3': '3', '4': '4',
	'5': '5', '6': '6', '7': '7', '8': '8', '9': '9',

	// Chinese numerals, traditional and simplified forms where they differ.
	'零': '0', '〇': '0',
	'一': '1', '壹': '1',
	'二': '2', '貳': '2', '两': '2', '兩': '2',
	'三': '3', '參': '3',
	'四': '4', '肆': '4',
	'五': '5', '伍': '5',
	'六': '6', '陸': '6',
	'七': '7', '柒': '7',
	'八': '8', '捌': '8',
	'九': '9', '玖': '9',

	// Fullwidth digits.
	'０': '0', '１': '1', '２': '2', '３': '3', '４': '4',
	'５': '5', '６': '6', '７': '7', '８': '8', '９': '9',

	// Whisper occasionally hears 一 as the letter E.
	'E': '1', 'e': '1',
}

// NormalizeDigits reduces a raw transcription to the digit string to submit:
// every recognizable numeral maps to its ASCII digit, everything else
// (spaces, punctuation, filler words) is dropped. An empty result means the
// transcription was unusable and must not be submitted.
func NormalizeDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if d, ok := numeralToDigit[r]; ok {
			b.WriteRune(d)
		}
	}
	return b.String()
}
