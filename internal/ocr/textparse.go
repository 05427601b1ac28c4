package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/larderhq/larder/internal/models"
)

// TextParser turns raw OCR text into a canonical receipt, line by line
type TextParser struct {
	pricePatterns   []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	datePatterns    []*regexp.Regexp
	totalPatterns   []*regexp.Regexp
	taxPatterns     []*regexp.Regexp
	spaceRe         *regexp.Regexp
}

// NewTextParser creates a parser for line-oriented receipt text
func NewTextParser() *TextParser {
	return &TextParser{
		pricePatterns: []*regexp.Regexp{
			// ITEM NAME UPC $X.XX F (UPC is 11-14 digits)
			regexp.MustCompile(`^(.+?)\s+\d{11,14}\s+\$?(\d{1,3}\.\d{2})\s*[FNT]?\s*$`),
			// QTY x ITEM @ PRICE
			regexp.MustCompile(`^(\d+)\s*[xX@]\s*(.+?)\s+\$?(\d{1,3}\.\d{2})`),
			// ITEM NAME @ X.XX EA
			regexp.MustCompile(`^(.+?)\s+@\s*\$?(\d{1,3}\.\d{2})\s*(?:EA|EACH)?`),
			// ITEM NAME    $X.XX (price at end, optional tax flag)
			regexp.MustCompile(`^(.+?)\s+\$?(\d{1,3}\.\d{2})\s*[FNT]?\s*$`),
		},
		excludePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*(TAX|SUBTOTAL|SUB\s*TOTAL|TOTAL|GRAND\s*TOTAL|BALANCE|CHANGE|CASH|CREDIT|DEBIT|CARD|VISA|MASTERCARD|AMEX|DISCOVER|SAVINGS|DISCOUNT|COUPON|MEMBER|LOYALTY|POINTS|REWARD|THANK\s*YOU|HAVE\s*A|STORE\s*#|CASHIER|TRANS|REG|DATE|TIME|TEL|PHONE|ADDRESS|RECEIPT|RETURN|REFUND|VOID|SURCHARGE|SOLD\s*ITEMS?|PAID|PURCHASE|CREDIT\s*CARD)\b`),
			regexp.MustCompile(`^\s*[-=*]+\s*$`),
			regexp.MustCompile(`^\s*\d{2}[/-]\d{2}[/-]\d{2,4}\s*$`),
			regexp.MustCompile(`^\s*\d{1,2}:\d{2}\s*(AM|PM)?\s*$`),
			// Section headers printed between item groups
			regexp.MustCompile(`(?i)^\s*(BREAD\s*(AND|&)\s*SNACKS|DAIRY|PACKAGE\s*FOOD|PRE\s*PACKAGED\s*MEAT|PRODUCE|SPECIALTY\s*FOODS?|FROZEN\s*FOODS?|BEVERAGES?|DELI|BAKERY|MEAT|SEAFOOD|GROCERY|HEALTH\s*(AND|&)\s*BEAUTY|HOUSEHOLD|PET\s*SUPPLIES?)\s*$`),
			// Weight detail lines: "2.96 lb @ $0.99 / lb"
			regexp.MustCompile(`^\s*\d+\.?\d*\s*(lb|oz|kg|g)?\s*@\s*\$?\d+\.\d{2}\s*(\/\s*(lb|oz|kg|g)|EACH|EA)?\s*$`),
		},
		datePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`),
			regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`),
		},
		totalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:TOTAL|GRAND\s*TOTAL|BALANCE\s*DUE|AMOUNT\s*DUE)\s*:?\s*\$?(\d+\.\d{2})`),
		},
		taxPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:TAX|SALES\s*TAX)\s*:?\s*\$?(\d+\.\d{2})`),
		},
		spaceRe: regexp.MustCompile(`\s+`),
	}
}

// Parse extracts what it can from raw receipt text. The first non-excluded
// line is taken as the merchant name.
func (p *TextParser) Parse(text string) *models.CanonicalReceipt {
	lines := strings.Split(text, "\n")
	receipt := &models.CanonicalReceipt{}

	receipt.PurchaseDate = p.extractDate(lines)
	if total := p.extractAmount(lines, p.totalPatterns); total != nil {
		receipt.TotalAmount = *total
	}
	if tax := p.extractAmount(lines, p.taxPatterns); tax != nil {
		receipt.TaxAmount = *tax
	}

	for _, line := range lines {
		line = p.cleanLine(line)
		if line == "" {
			continue
		}

		if receipt.MerchantName == "" && !p.shouldExclude(line) && !p.looksLikeItem(line) {
			receipt.MerchantName = line
			continue
		}

		if p.shouldExclude(line) {
			continue
		}

		if item := p.parseLine(line); item != nil {
			receipt.LineItems = append(receipt.LineItems, *item)
		}
	}

	return receipt
}

func (p *TextParser) looksLikeItem(line string) bool {
	return p.parseLine(line) != nil
}

func (p *TextParser) parseLine(line string) *models.CanonicalLineItem {
	for _, pattern := range p.pricePatterns {
		matches := pattern.FindStringSubmatch(line)
		if len(matches) < 3 {
			continue
		}

		var name, priceStr string
		quantity := 1.0

		if len(matches) == 4 {
			// Pattern with leading quantity: QTY, NAME, PRICE
			if qty, err := strconv.Atoi(matches[1]); err == nil {
				quantity = float64(qty)
			}
			name = matches[2]
			priceStr = matches[3]
		} else {
			name = matches[1]
			priceStr = matches[2]
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			continue
		}
		// A four-digit "price" is usually a phone number fragment
		if price <= 0 || price > 9999 {
			continue
		}

		name = p.cleanItemName(name)
		if name == "" {
			continue
		}

		unitPrice := price
		if quantity > 1 {
			unitPrice = price / quantity
		}
		return &models.CanonicalLineItem{
			Description: name,
			Quantity:    quantity,
			UnitPrice:   &unitPrice,
			TotalPrice:  &price,
		}
	}
	return nil
}

func (p *TextParser) shouldExclude(line string) bool {
	for _, pattern := range p.excludePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *TextParser) cleanLine(line string) string {
	line = p.spaceRe.ReplaceAllString(line, " ")
	line = strings.ReplaceAll(line, "|", "")
	line = strings.ReplaceAll(line, "\\", "")
	return strings.TrimSpace(line)
}

func (p *TextParser) cleanItemName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ".,;:-_")
	for _, prefix := range []string{"@", "#", "*"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

func (p *TextParser) extractDate(lines []string) *time.Time {
	for _, line := range lines {
		for _, pattern := range p.datePatterns {
			matches := pattern.FindStringSubmatch(line)
			if len(matches) < 4 {
				continue
			}

			month, err1 := strconv.Atoi(matches[1])
			day, err2 := strconv.Atoi(matches[2])
			year, err3 := strconv.Atoi(matches[3])
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}

			// YYYY-MM-DD when the first group is four digits
			if len(matches[1]) == 4 {
				year, month, day = month, day, year
			}

			if year < 100 {
				if year > 50 {
					year += 1900
				} else {
					year += 2000
				}
			}

			if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
				date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
				return &date
			}
		}
	}
	return nil
}

func (p *TextParser) extractAmount(lines []string, patterns []*regexp.Regexp) *float64 {
	// Totals print near the bottom; search upward
	for i := len(lines) - 1; i >= 0; i-- {
		for _, pattern := range patterns {
			matches := pattern.FindStringSubmatch(lines[i])
			if len(matches) >= 2 {
				amount, err := strconv.ParseFloat(matches[1], 64)
				if err == nil && amount > 0 {
					return &amount
				}
			}
		}
	}
	return nil
}
