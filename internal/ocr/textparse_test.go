package ocr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceipt = `SAFEWAY
123 MAIN ST
05/02/2026 10:31 AM

ORG BANANAS 00034000004409 $1.18 F
WHL MILK GAL $3.02
2 x GREEK YOGURT $5.98
SUBTOTAL $10.18
TAX $0.61
TOTAL $10.79
THANK YOU FOR SHOPPING
`

func TestTextParserParse(t *testing.T) {
	p := NewTextParser()
	receipt := p.Parse(sampleReceipt)

	assert.Equal(t, "SAFEWAY", receipt.MerchantName)

	require.NotNil(t, receipt.PurchaseDate)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), *receipt.PurchaseDate)

	assert.Equal(t, 10.79, receipt.TotalAmount)
	assert.Equal(t, 0.61, receipt.TaxAmount)

	require.Len(t, receipt.LineItems, 3)
	assert.Equal(t, "ORG BANANAS", receipt.LineItems[0].Description)
	assert.Equal(t, 1.0, receipt.LineItems[0].Quantity)
	require.NotNil(t, receipt.LineItems[0].TotalPrice)
	assert.Equal(t, 1.18, *receipt.LineItems[0].TotalPrice)

	assert.Equal(t, "GREEK YOGURT", receipt.LineItems[2].Description)
	assert.Equal(t, 2.0, receipt.LineItems[2].Quantity)
	require.NotNil(t, receipt.LineItems[2].UnitPrice)
	assert.Equal(t, 2.99, *receipt.LineItems[2].UnitPrice)
}

func TestTextParserExcludesNonItems(t *testing.T) {
	p := NewTextParser()
	receipt := p.Parse(`STORE
VISA CARD 1234 $10.00
CHANGE $5.00
CASHIER 42
BREAD $2.50
`)

	require.Len(t, receipt.LineItems, 1)
	assert.Equal(t, "BREAD", receipt.LineItems[0].Description)
}

func TestTextParserExcludesWeightDetailLines(t *testing.T) {
	p := NewTextParser()
	receipt := p.Parse("STORE\nBANANAS $2.93\n2.96 lb @ $0.99 / lb\n")

	require.Len(t, receipt.LineItems, 1)
	assert.Equal(t, "BANANAS", receipt.LineItems[0].Description)
}

func TestTextParserISODate(t *testing.T) {
	p := NewTextParser()
	receipt := p.Parse("STORE\n2026-05-02\nMILK $3.50\n")

	require.NotNil(t, receipt.PurchaseDate)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), *receipt.PurchaseDate)
}

func TestTextParserEmptyInput(t *testing.T) {
	p := NewTextParser()
	receipt := p.Parse("")

	assert.Empty(t, receipt.LineItems)
	assert.Nil(t, receipt.PurchaseDate)
	assert.Zero(t, receipt.TotalAmount)
}
