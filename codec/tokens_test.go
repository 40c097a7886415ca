package codec

import "testing"

func TestMatchTokenRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		plain   int
		copyLen int
		offset  int
	}{
		{"formA min", 0, formAMinC, 1},
		{"formA max", 3, formAMaxC, formAMaxO},
		{"formB min", 0, formBMinC, formAMaxO + 1},
		{"formB max", 3, formBMaxC, formBMaxO},
		{"formC min", 0, formCMinC, formBMaxO + 1},
		{"formC max", 3, formCMaxC, formCMaxO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := appendMatchToken(nil, tt.plain, tt.copyLen, tt.offset)
			// Pad a trailer after the token so decodeToken's bounds checks
			// against len(buf) never bite on the plain-byte region.
			buf = append(buf, make([]byte, tt.plain)...)
			tok, err := decodeToken(buf, 0)
			if err != nil {
				t.Fatalf("decodeToken() error = %v", err)
			}
			if tok.plain != tt.plain {
				t.Errorf("plain = %d, want %d", tok.plain, tt.plain)
			}
			if tok.copyLen != tt.copyLen {
				t.Errorf("copyLen = %d, want %d", tok.copyLen, tt.copyLen)
			}
			if tok.offset != tt.offset {
				t.Errorf("offset = %d, want %d", tok.offset, tt.offset)
			}
		})
	}
}

func TestLongLiteralTokenRoundTrip(t *testing.T) {
	for n := longLitUnit; n <= longLitMax; n += longLitUnit {
		buf := appendLongLiteralToken(nil, n)
		tok, err := decodeToken(buf, 0)
		if err != nil {
			t.Fatalf("n=%d: decodeToken() error = %v", n, err)
		}
		if tok.form != formLiteralLong {
			t.Errorf("n=%d: form = %v, want formLiteralLong", n, tok.form)
		}
		if tok.plain != n {
			t.Errorf("n=%d: plain = %d, want %d", n, tok.plain, n)
		}
	}
}

func TestTrailingLiteralTokenRoundTrip(t *testing.T) {
	for n := 0; n <= trailLitMax; n++ {
		buf := appendTrailingLiteralToken(nil, n)
		tok, err := decodeToken(buf, 0)
		if err != nil {
			t.Fatalf("n=%d: decodeToken() error = %v", n, err)
		}
		if tok.form != formLiteralTrail {
			t.Errorf("n=%d: form = %v, want formLiteralTrail", n, tok.form)
		}
		if tok.plain != n {
			t.Errorf("n=%d: plain = %d, want %d", n, tok.plain, n)
		}
	}
}

func TestClassifyControlByte(t *testing.T) {
	tests := []struct {
		b    byte
		want tokenForm
	}{
		{0x00, formA},
		{0x7F, formA},
		{0x80, formB},
		{0xBF, formB},
		{0xC0, formC},
		{0xDF, formC},
		{0xE0, formLiteralLong},
		{0xFB, formLiteralLong},
		{0xFC, formLiteralTrail},
		{0xFF, formLiteralTrail},
	}
	for _, tt := range tests {
		if got := classifyControlByte(tt.b); got != tt.want {
			t.Errorf("classifyControlByte(%#x) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestDecodeTokenTruncated(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"formA missing second byte", []byte{0x00}},
		{"formB missing third byte", []byte{0x80, 0x00}},
		{"formC missing fourth byte", []byte{0xC0, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeToken(tt.buf, 0); err != ErrTruncatedStream {
				t.Errorf("decodeToken() error = %v, want ErrTruncatedStream", err)
			}
		})
	}
}
