package ledger

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reconcile", func() {
	var (
		session Session
		result  Reconciliation
	)

	BeforeEach(func() {
		session = NewSession(dec("200"), time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	})

	JustBeforeEach(func() {
		result = Reconcile(session)
	})

	When("nothing is itemized", func() {
		It("keeps every rule inactive", func() {
			for _, r := range result.Results() {
				Expect(r.Active).To(BeFalse(), string(r.Rule))
			}
		})

		It("is valid", func() {
			Expect(result.Valid()).To(BeTrue())
		})
	})

	Describe("card link clients", func() {
		When("a client matching the declared amount is added to an empty list", func() {
			BeforeEach(func() {
				session.Entries.CardLink = dec("500")
				var err error
				session, err = session.WithListItem(ListCardLinkClients, ClientAmount{Name: "Maria", Amount: dec("500")})
				Expect(err).NotTo(HaveOccurred())
			})

			It("satisfies the rule", func() {
				Expect(result.CardLink.Active).To(BeTrue())
				Expect(result.CardLink.Matches).To(BeTrue())
				Expect(result.CardLink.Diff.IsZero()).To(BeTrue())
			})
		})

		When("the clients do not add up", func() {
			BeforeEach(func() {
				session.Entries.CardLink = dec("500")
				session.Entries.CardLinkClients = []ClientAmount{{Name: "Maria", Amount: dec("320")}}
			})

			It("reports the difference", func() {
				Expect(result.CardLink.Matches).To(BeFalse())
				Expect(result.CardLink.Expected.StringFixed(2)).To(Equal("500.00"))
				Expect(result.CardLink.Actual.StringFixed(2)).To(Equal("320.00"))
				Expect(result.CardLink.Diff.StringFixed(2)).To(Equal("180.00"))
			})

			It("blocks saving", func() {
				Expect(result.Valid()).To(BeFalse())
				Expect(result.Failing()).To(HaveLen(1))
				Expect(result.Failing()[0].Rule).To(Equal(RuleCardLink))
			})
		})

		When("a declared amount has no itemized clients", func() {
			BeforeEach(func() {
				session.Entries.CardLink = dec("500")
			})

			It("stays inactive", func() {
				Expect(result.CardLink.Active).To(BeFalse())
				Expect(result.Valid()).To(BeTrue())
			})
		})
	})

	Describe("invoice clients", func() {
		BeforeEach(func() {
			session.Entries.Invoices = dec("150")
			session.Entries.InvoiceClients = []ClientAmount{
				{Name: "A", Amount: dec("100"), Installments: 2},
				{Name: "B", Amount: dec("50")},
			}
		})

		It("matches when the sum equals the invoices total", func() {
			Expect(result.Invoices.Active).To(BeTrue())
			Expect(result.Invoices.Matches).To(BeTrue())
		})
	})

	Describe("pix account clients", func() {
		When("pix account is positive without clients", func() {
			BeforeEach(func() {
				session.Entries.PixAccount = dec("80")
			})

			It("is active and blocks", func() {
				Expect(result.PixAccount.Active).To(BeTrue())
				Expect(result.PixAccount.Matches).To(BeFalse())
				Expect(result.Valid()).To(BeFalse())
			})
		})

		When("pix account is zero", func() {
			BeforeEach(func() {
				session.Entries.PixAccountClients = []ClientAmount{{Name: "X", Amount: dec("10")}}
			})

			It("stays inactive", func() {
				Expect(result.PixAccount.Active).To(BeFalse())
			})
		})
	})

	Describe("withdrawal justification", func() {
		BeforeEach(func() {
			session.Exits.Withdrawal = dec("300")
			session.Exits.PurchaseJustificationAmount = dec("120")
			session.Exits.CashOutJustificationAmount = dec("180")
		})

		It("matches when both justifications add up", func() {
			Expect(result.Withdrawal.Active).To(BeTrue())
			Expect(result.Withdrawal.Matches).To(BeTrue())
			Expect(result.Valid()).To(BeTrue())
		})

		When("a justification changes", func() {
			BeforeEach(func() {
				session.Exits.CashOutJustificationAmount = dec("170")
			})

			It("breaks the match", func() {
				Expect(result.Withdrawal.Matches).To(BeFalse())
				Expect(result.Withdrawal.Diff.StringFixed(2)).To(Equal("10.00"))
				Expect(result.Valid()).To(BeFalse())
			})
		})

		When("no justification is given", func() {
			BeforeEach(func() {
				session.Exits.PurchaseJustificationAmount = dec("0")
				session.Exits.CashOutJustificationAmount = dec("0")
			})

			It("stays inactive", func() {
				Expect(result.Withdrawal.Active).To(BeFalse())
			})
		})
	})
})
