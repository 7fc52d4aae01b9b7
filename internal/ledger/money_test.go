package ledger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseCurrencyInput", func() {
	DescribeTable("reads digits as cents",
		func(input, expected string) {
			Expect(ParseCurrencyInput(input).StringFixed(2)).To(Equal(expected))
		},
		Entry("plain digits", "12345", "123.45"),
		Entry("single digit", "5", "0.05"),
		Entry("formatted amount", "R$ 1.234,56", "1234.56"),
		Entry("leading zeros", "000100", "1.00"),
		Entry("empty input", "", "0.00"),
		Entry("no digits", "abc", "0.00"),
		Entry("minus sign is discarded", "-250", "2.50"),
	)

	When("digits are typed one at a time", func() {
		It("grows the amount monotonically", func() {
			typed := ""
			previous := ParseCurrencyInput(typed)
			for _, d := range "1234567" {
				typed += string(d)
				current := ParseCurrencyInput(typed)
				Expect(current.GreaterThan(previous)).To(BeTrue())
				previous = current
			}
			Expect(previous.StringFixed(2)).To(Equal("12345.67"))
		})
	})
})

var _ = Describe("FormatCurrencyInput", func() {
	It("round-trips through ParseCurrencyInput without drift", func() {
		for _, keys := range []string{"1", "99", "100", "123456", "000007", "98765432101"} {
			amount := ParseCurrencyInput(keys)
			again := ParseCurrencyInput(FormatCurrencyInput(amount))
			Expect(again.Equal(amount)).To(BeTrue(), "keys %q", keys)

			// repeated edits keep the value stable
			for i := 0; i < 5; i++ {
				again = ParseCurrencyInput(FormatCurrencyInput(again))
			}
			Expect(again.Equal(amount)).To(BeTrue(), "keys %q", keys)
		}
	})

	It("uses a comma as decimal separator", func() {
		Expect(FormatCurrencyInput(dec("1234.5"))).To(Equal("1234,50"))
	})
})

var _ = Describe("FormatBRL", func() {
	It("prefixes the real sign", func() {
		Expect(FormatBRL(dec("10"))).To(HavePrefix("R$ "))
	})

	It("uses a comma for cents", func() {
		Expect(FormatBRL(dec("10.5"))).To(HaveSuffix("10,50"))
	})

	It("rounds to cents", func() {
		Expect(FormatBRL(dec("0.005"))).To(HaveSuffix("0,01"))
	})
})
