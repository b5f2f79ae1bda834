// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package sms

// GSM 03.38 default alphabet, indexed by septet value.
const gsmChars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞ\x1bÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>" +
	"?¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

// Extension table characters reached with the 0x1B escape.
var gsmExt = map[rune]byte{
	'^':  0x14,
	'{':  0x28,
	'}':  0x29,
	'\\': 0x2F,
	'[':  0x3C,
	'~':  0x3D,
	']':  0x3E,
	'|':  0x40,
	'€':  0x65,
}

var gsmIndex = func() map[rune]byte {
	m := make(map[rune]byte, 128)
	i := 0
	for _, r := range gsmChars {
		m[r] = byte(i)
		i++
	}
	// 0x1B is the escape marker, not a character.
	delete(m, '\x1b')
	return m
}()

// GSMEncode maps text to GSM 03.38 septet values, one octet per septet.
// Extension characters expand to an escape pair, unmappable runes are
// dropped.
func GSMEncode(plaintext string) []byte {
	out := make([]byte, 0, len(plaintext))
	for _, r := range plaintext {
		if v, ok := gsmIndex[r]; ok {
			out = append(out, v)
			continue
		}
		if v, ok := gsmExt[r]; ok {
			out = append(out, 0x1B, v)
		}
	}
	return out
}
