package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantSubj string
		wantText string
		wantHTML string
	}{
		{
			name: "plain text",
			raw: `From: Client <client@example.com>
To: hello@alizidanjr.site
Subject: Wedding inquiry

Are you free in June?
`,
			wantSubj: "Wedding inquiry",
			wantText: "Are you free in June?\r\n",
		},
		{
			name: "encoded subject and html only",
			raw: `From: client@example.com
To: hello@alizidanjr.site
Subject: =?UTF-8?B?0J/RgNC40LLQtdGC?=
Content-Type: text/html; charset=utf-8

<p>Hi</p>`,
			wantSubj: "Привет",
			wantHTML: "<p>Hi</p>",
		},
		{
			name: "multipart alternative with qp and base64",
			raw: `From: client@example.com
To: hello@alizidanjr.site
Subject: Booking
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Caf=C3=A9 shoot =
tomorrow
--XYZ
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: base64

PGI+Q2Fmw6k8L2I+
--XYZ--
`,
			wantSubj: "Booking",
			wantText: "Café shoot tomorrow",
			wantHTML: "<b>Café</b>",
		},
		{
			name: "nested multipart skips attachments",
			raw: `From: client@example.com
To: hello@alizidanjr.site
Subject: Photos
Content-Type: multipart/mixed; boundary="OUTER"

--OUTER
Content-Type: multipart/alternative; boundary="INNER"

--INNER
Content-Type: text/plain

see attached
--INNER--
--OUTER
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

not the body
--OUTER--
`,
			wantSubj: "Photos",
			wantText: "see attached",
		},
		{
			name: "latin1 charset",
			raw: "From: a@b.c\nSubject: x\nContent-Type: text/plain; charset=iso-8859-1\n\nna\xefve",
			wantSubj: "x",
			wantText: "naïve",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseEmail(crlf(tt.raw))
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubj, parsed.Subject)
			assert.Equal(t, tt.wantText, parsed.Text)
			assert.Equal(t, tt.wantHTML, parsed.HTML)
		})
	}
}

func TestParseEmail_Invalid(t *testing.T) {
	_, err := ParseEmail([]byte("not a message"))
	assert.Error(t, err)

	_, err = ParseEmail(crlf("Subject: x\nContent-Type: multipart/mixed\n\nbody"))
	assert.Error(t, err)
}
