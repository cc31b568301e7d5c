package totp

import (
	"encoding/base32"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcSecret - тестовый seed из RFC 6238 Appendix B ("12345678901234567890" в base32)
var rfcSecret = base32.StdEncoding.EncodeToString([]byte("12345678901234567890"))

func TestGenerate_RFC6238Vectors(t *testing.T) {
	require.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", rfcSecret)

	tests := []struct {
		unix int64
		want string
	}{
		{unix: 59, want: "94287082"},
		{unix: 1111111109, want: "07081804"},
		{unix: 1111111111, want: "14050471"},
		{unix: 1234567890, want: "89005924"},
		{unix: 2000000000, want: "69279037"},
		{unix: 20000000000, want: "65353130"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			code, err := Generate(rfcSecret, 8, 30, time.Unix(tt.unix, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestGenerate_SixDigits(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "epoch", at: time.Unix(0, 0), want: "282760"},
		{name: "2023", at: time.Unix(1700000000, 0), want: "324550"},
		// та же секунда в другой временной зоне дает тот же код
		{name: "timezone independent", at: time.Unix(1700000000, 0).In(time.FixedZone("UTC+5", 5*3600)), want: "324550"},
		// внутри одного шага код не меняется
		{name: "same step", at: time.Unix(1700000000+9, 999), want: "324550"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Generate("JBSWY3DPEHPK3PXP", 6, 30, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestGenerate_Pure(t *testing.T) {
	at := time.Unix(1234567890, 0)
	first, err := Generate(rfcSecret, 8, 30, at)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		code, err := Generate(rfcSecret, 8, 30, at)
		require.NoError(t, err)
		assert.Equal(t, first, code)
	}
}

func TestGenerate_LengthAndPadding(t *testing.T) {
	at := time.Unix(1111111109, 0)
	for digits := MinDigits; digits <= MaxDigits; digits++ {
		code, err := Generate(rfcSecret, digits, 30, at)
		require.NoError(t, err)
		assert.Len(t, code, digits)
	}

	// 07081804 -> ведущий ноль сохраняется
	code, err := Generate(rfcSecret, 8, 30, at)
	require.NoError(t, err)
	assert.Equal(t, "07081804", code)
}

func TestGenerate_Errors(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		secret  string
		digits  int
		period  int
		at      time.Time
		wantErr error
	}{
		{name: "invalid base32", secret: "JBSWY3DP!!", digits: 6, period: 30, at: now, wantErr: ErrInvalidSecretEncoding},
		{name: "empty secret", secret: "", digits: 6, period: 30, at: now, wantErr: ErrInvalidSecretEncoding},
		{name: "zero digits", secret: rfcSecret, digits: 0, period: 30, at: now, wantErr: ErrInvalidDigits},
		{name: "too many digits", secret: rfcSecret, digits: 11, period: 30, at: now, wantErr: ErrInvalidDigits},
		{name: "zero period", secret: rfcSecret, digits: 6, period: 0, at: now, wantErr: ErrInvalidPeriod},
		{name: "negative period", secret: rfcSecret, digits: 6, period: -30, at: now, wantErr: ErrInvalidPeriod},
		{name: "before epoch", secret: rfcSecret, digits: 6, period: 30, at: time.Unix(-1, 0), wantErr: ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Generate(tt.secret, tt.digits, tt.period, tt.at)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, code)
		})
	}
}

func TestDecodeSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		want    []byte
		wantErr bool
	}{
		{name: "canonical", secret: "JBSWY3DPEHPK3PXP", want: []byte("Hello!\xde\xad\xbe\xef")},
		{name: "lowercase with spaces", secret: "jbsw y3dp ehpk 3pxp", want: []byte("Hello!\xde\xad\xbe\xef")},
		{name: "dashes", secret: "JBSW-Y3DP-EHPK-3PXP", want: []byte("Hello!\xde\xad\xbe\xef")},
		{name: "canonical padding", secret: "MZXW6===", want: []byte("foo")},
		{name: "unpadded", secret: "MZXW6", want: []byte("foo")},
		{name: "broken padding", secret: "MZXW6=", wantErr: true},
		{name: "non base32 digits", secret: "1234", wantErr: true},
		{name: "punctuation", secret: "JBSWY3DP!!", wantErr: true},
		{name: "only spaces", secret: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DecodeSecret(tt.secret)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSecretEncoding)
				assert.Nil(t, key)
				assert.ErrorIs(t, ValidateSecret(tt.secret), ErrInvalidSecretEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.NoError(t, ValidateSecret(tt.secret))
		})
	}
}

func TestNormalizeSecret(t *testing.T) {
	assert.Equal(t, "JBSWY3DPEHPK3PXP", NormalizeSecret(" jbsw-y3dp ehpk\t3pxp\n"))
	assert.Equal(t, "MZXW6===", NormalizeSecret("mzxw6==="))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, time.Second, Remaining(30, time.Unix(59, 0)))
	assert.Equal(t, 30*time.Second, Remaining(30, time.Unix(60, 0)))
	assert.Equal(t, 45*time.Second, Remaining(60, time.Unix(75, 0)))
	assert.Equal(t, time.Duration(0), Remaining(0, time.Unix(75, 0)))
}

func TestValidateParams(t *testing.T) {
	assert.NoError(t, ValidateParams(6, 30))
	assert.NoError(t, ValidateParams(8, 60))
	assert.NoError(t, ValidateParams(MaxDigits, MaxPeriod))
	assert.ErrorIs(t, ValidateParams(0, 30), ErrInvalidDigits)
	assert.ErrorIs(t, ValidateParams(6, MaxPeriod+1), ErrInvalidPeriod)
}

func TestURI(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "simple",
			params: Params{Service: "GitHub", Secret: "jbsw y3dp ehpk 3pxp", Digits: 6, Period: 30},
			want:   "otpauth://totp/GitHub?secret=JBSWY3DPEHPK3PXP&issuer=GitHub&digits=6&period=30",
		},
		{
			name:   "escaped name and stripped padding",
			params: Params{Service: "My Bank", Secret: "MZXW6===", Digits: 8, Period: 60},
			want:   "otpauth://totp/My%20Bank?secret=MZXW6&issuer=My+Bank&digits=8&period=60",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URI(tt.params))
		})
	}
}
