package brcode

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncoder(t *testing.T) *Encoder {
	t.Helper()
	enc, err := NewEncoder(Merchant{Key: "pix@example.com", Name: "Loja São João", City: "São Paulo"})
	require.NoError(t, err)
	return enc
}

func TestCRC16KnownVector(t *testing.T) {
	assert.Equal(t, uint16(0x29B1), CRC16([]byte("123456789")))
	assert.Equal(t, "29B1", Checksum("123456789"))
}

func TestEncodeDynamicPayload(t *testing.T) {
	enc := testEncoder(t)

	payload, err := enc.Encode(decimal.RequireFromString("199.90"), "ES1A2B3C")
	require.NoError(t, err)

	want := "000201" + "010212" +
		"26370014br.gov.bcb.pix0115pix@example.com" +
		"52040000" + "5303986" + "5406199.90" + "5802BR" +
		"5913Loja Sao Joao" + "6009Sao Paulo" +
		"62120508ES1A2B3C" + "6304A5E5"
	assert.Equal(t, want, payload)
}

func TestEncodeChecksumReproducible(t *testing.T) {
	enc := testEncoder(t)

	payload, err := enc.Encode(decimal.RequireFromString("199.90"), "ES1A2B3C")
	require.NoError(t, err)

	body, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	assert.True(t, strings.HasSuffix(body, "6304"))
	assert.Equal(t, Checksum(body), sum)
	assert.True(t, Verify(payload))
}

func TestEncodeStaticPayloadOmitsAmount(t *testing.T) {
	enc := testEncoder(t)

	payload, err := enc.Encode(decimal.Zero, "")
	require.NoError(t, err)

	want := "000201" + "010211" +
		"26370014br.gov.bcb.pix0115pix@example.com" +
		"52040000" + "5303986" + "5802BR" +
		"5913Loja Sao Joao" + "6009Sao Paulo" +
		"62070503***" + "630423D6"
	assert.Equal(t, want, payload)
}

func TestEncodeAmountFieldPresence(t *testing.T) {
	enc := testEncoder(t)

	tests := []struct {
		amount  string
		present bool
		value   string
		initVal string
	}{
		{"0", false, "", "11"},
		{"0.00", false, "", "11"},
		{"0.01", true, "0.01", "12"},
		{"1", true, "1.00", "12"},
		{"1234.5", true, "1234.50", "12"},
		{"9999999999.99", true, "9999999999.99", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			payload, err := enc.Encode(decimal.RequireFromString(tt.amount), "REF1")
			require.NoError(t, err)

			fields, err := Parse(payload)
			require.NoError(t, err)

			got, ok := Lookup(fields, "54")
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.value, got)

			initVal, _ := Lookup(fields, "01")
			assert.Equal(t, tt.initVal, initVal)
			assert.True(t, Verify(payload))
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := testEncoder(t)
	amount := decimal.RequireFromString("42.10")

	a, err := enc.Encode(amount, "ORDER42")
	require.NoError(t, err)
	b, err := enc.Encode(amount, "ORDER42")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeRejectsInvalidAmounts(t *testing.T) {
	enc := testEncoder(t)

	_, err := enc.Encode(decimal.RequireFromString("-1"), "X")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = enc.Encode(decimal.RequireFromString("10.005"), "X")
	assert.ErrorIs(t, err, ErrAmountPrecision)

	_, err = enc.Encode(decimal.RequireFromString("99999999999.00"), "X")
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestEncodeTruncatesAndSanitizesFields(t *testing.T) {
	enc, err := NewEncoder(Merchant{
		Key:  "+5511999999999",
		Name: "Comércio de Eletrônicos Ação Ltda Filial Centro",
		City: "São José dos Campos",
	})
	require.NoError(t, err)

	payload, err := enc.Encode(decimal.RequireFromString("10"), "es-1a2b|3c*"+strings.Repeat("Z", 40))
	require.NoError(t, err)

	fields, err := Parse(payload)
	require.NoError(t, err)

	name, _ := Lookup(fields, "59")
	assert.Equal(t, "Comercio de Eletronicos A", name)
	assert.Len(t, name, 25)

	city, _ := Lookup(fields, "60")
	assert.Equal(t, "Sao Jose dos Ca", city)

	additional, _ := Lookup(fields, "62")
	inner, err := Parse(additional)
	require.NoError(t, err)
	ref, _ := Lookup(inner, "05")
	assert.Len(t, ref, 25)
	assert.True(t, strings.HasPrefix(ref, "es1a2b3c"))
	assert.True(t, Verify(payload))
}

func TestNewEncoderValidation(t *testing.T) {
	tests := []struct {
		name     string
		merchant Merchant
		wantErr  error
	}{
		{"missing key", Merchant{Name: "Loja", City: "Recife"}, ErrMissingKey},
		{"blank key", Merchant{Key: "   ", Name: "Loja", City: "Recife"}, ErrMissingKey},
		{"non ascii key", Merchant{Key: "chave-ç", Name: "Loja", City: "Recife"}, ErrInvalidKey},
		{"long key", Merchant{Key: strings.Repeat("k", 78), Name: "Loja", City: "Recife"}, ErrInvalidKey},
		{"missing name", Merchant{Key: "k", City: "Recife"}, ErrMissingName},
		{"missing city", Merchant{Key: "k", Name: "Loja"}, ErrMissingCity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.merchant)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	enc := testEncoder(t)
	payload, err := enc.Encode(decimal.RequireFromString("199.90"), "ES1A2B3C")
	require.NoError(t, err)

	tampered := strings.Replace(payload, "199.90", "199.99", 1)
	assert.False(t, Verify(tampered))
	assert.False(t, Verify("6304"))
}

func TestVerifyRequiresStructure(t *testing.T) {
	noFormat := "0102126304"
	assert.False(t, Verify(noFormat+Checksum(noFormat)))

	crcNotLast := "0002016304"
	assert.False(t, Verify(crcNotLast+Checksum(crcNotLast)+"5802BR"))

	minimal := "0002016304"
	assert.True(t, Verify(minimal+Checksum(minimal)))
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("00020")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("0010abc")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("00xx01")
	assert.ErrorIs(t, err, ErrMalformed)
}
