package register

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/caixa/internal/ledger"
)

var _ = Describe("Store", func() {
	var (
		db         *mockDB
		access     StaticAccess
		idGen      *mockIDGenerator
		timeSource *mockTimeSource
		store      *Store
		now        time.Time
	)

	BeforeEach(func() {
		db = newMockDB()
		access = StaticAccess(true)
		idGen = &mockIDGenerator{id: "cancel-1"}
		now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		timeSource = &mockTimeSource{now: now}
	})

	JustBeforeEach(func() {
		store = NewStoreWithDeps(db, access, dec("200"), idGen, timeSource)
	})

	Describe("loading", func() {
		When("nothing was persisted", func() {
			It("should start a fresh session with the configured cash fund", func() {
				s := store.Snapshot()
				Expect(s.Entries.CashFund.StringFixed(2)).To(Equal("200.00"))
				Expect(s.OpenedAt).To(Equal(now))
				Expect(s.Exits.PullerCommission.Percentage.StringFixed(0)).To(Equal("4"))
			})

			It("should have no changes", func() {
				Expect(store.HasChanges()).To(BeFalse())
			})
		})

		When("the persisted snapshot is unreadable", func() {
			BeforeEach(func() {
				db.loadErr = errors.New("unexpected end of JSON input")
			})

			It("should fall back to a fresh session", func() {
				s := store.Snapshot()
				Expect(s.Entries.Cash.IsZero()).To(BeTrue())
				Expect(s.Entries.CashFund.StringFixed(2)).To(Equal("200.00"))
			})
		})

		When("a session was persisted", func() {
			BeforeEach(func() {
				stored := ledger.NewSession(dec("50"), now.Add(-time.Hour))
				stored.Entries.Cash = dec("321.45")
				db.session = &stored
			})

			It("should restore it", func() {
				Expect(store.Snapshot().Entries.Cash.StringFixed(2)).To(Equal("321.45"))
			})

			It("should take the cash fund from configuration", func() {
				Expect(store.Snapshot().Entries.CashFund.StringFixed(2)).To(Equal("200.00"))
			})
		})
	})

	Describe("UpdateEntryField", func() {
		When("setting an amount from keystrokes", func() {
			JustBeforeEach(func() {
				Expect(store.UpdateEntryField(ledger.FieldCash, "1.250,75")).To(Succeed())
			})

			It("should update the session", func() {
				Expect(store.Snapshot().Entries.Cash.StringFixed(2)).To(Equal("1250.75"))
			})

			It("should report changes", func() {
				Expect(store.HasChanges()).To(BeTrue())
			})

			It("should include the amount in the totals", func() {
				Expect(store.Totals().Balance.StringFixed(2)).To(Equal("1450.75"))
			})
		})

		When("writing the cash fund", func() {
			It("returns ErrReadOnly and leaves the session untouched", func() {
				err := store.UpdateEntryField(ledger.FieldCashFund, "99999")
				Expect(errors.Is(err, ledger.ErrReadOnly)).To(BeTrue())
				Expect(store.Snapshot().Entries.CashFund.StringFixed(2)).To(Equal("200.00"))
				Expect(store.HasChanges()).To(BeFalse())
			})
		})

		When("the field is unknown", func() {
			It("returns ErrInvalidField", func() {
				err := store.UpdateEntryField("bitcoin", "1")
				Expect(errors.Is(err, ledger.ErrInvalidField)).To(BeTrue())
			})
		})
	})

	Describe("snapshots", func() {
		It("should not alias the live session", func() {
			Expect(store.AddListItem(ledger.ListCardLinkClients, ledger.ClientAmount{Name: "Ana", Amount: dec("10")})).To(Succeed())
			snap := store.Snapshot()
			snap.Entries.CardLinkClients[0].Name = "changed"
			Expect(store.Snapshot().Entries.CardLinkClients[0].Name).To(Equal("Ana"))
		})
	})

	Describe("Save", func() {
		var err error

		When("the session reconciles", func() {
			JustBeforeEach(func() {
				Expect(store.UpdateEntryField(ledger.FieldCash, "10000")).To(Succeed())
				err = store.Save()
			})

			It("should persist the session", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(db.session).NotTo(BeNil())
				Expect(db.session.Entries.Cash.StringFixed(2)).To(Equal("100.00"))
			})

			It("should clear the changes flag", func() {
				Expect(store.HasChanges()).To(BeFalse())
			})
		})

		When("record creation is blocked", func() {
			BeforeEach(func() {
				access = StaticAccess(false)
			})

			JustBeforeEach(func() {
				err = store.Save()
			})

			It("returns ErrRecordsBlocked", func() {
				Expect(errors.Is(err, ErrRecordsBlocked)).To(BeTrue())
			})

			It("should not persist anything", func() {
				Expect(db.sessionSaves).To(BeZero())
			})

			It("should report that saving is not possible", func() {
				Expect(store.CanSave()).To(BeFalse())
			})
		})

		When("the card link clients do not add up", func() {
			JustBeforeEach(func() {
				Expect(store.UpdateEntryField(ledger.FieldCardLink, dec("100"))).To(Succeed())
				Expect(store.AddListItem(ledger.ListCardLinkClients, ledger.ClientAmount{Name: "Ana", Amount: dec("60")})).To(Succeed())
				err = store.Save()
			})

			It("returns a ReconciliationError naming the rule", func() {
				var recErr *ReconciliationError
				Expect(errors.As(err, &recErr)).To(BeTrue())
				Expect(recErr.Failing).To(HaveLen(1))
				Expect(recErr.Failing[0].Rule).To(Equal(ledger.RuleCardLink))
				Expect(recErr.Failing[0].Diff.StringFixed(2)).To(Equal("40.00"))
			})

			It("matches ErrNotReconciled", func() {
				Expect(errors.Is(err, ErrNotReconciled)).To(BeTrue())
			})

			It("should keep the changes unsaved", func() {
				Expect(db.sessionSaves).To(BeZero())
				Expect(store.HasChanges()).To(BeTrue())
			})

			It("should allow saving once the clients add up", func() {
				Expect(store.AddListItem(ledger.ListCardLinkClients, ledger.ClientAmount{Name: "Bia", Amount: dec("40")})).To(Succeed())
				Expect(store.CanSave()).To(BeTrue())
				Expect(store.Save()).To(Succeed())
			})
		})

		When("the withdrawal justification does not add up", func() {
			JustBeforeEach(func() {
				Expect(store.UpdateExitField(ledger.FieldWithdrawal, dec("200"))).To(Succeed())
				Expect(store.UpdateExitField(ledger.FieldPurchaseJustificationAmount, dec("150"))).To(Succeed())
				err = store.Save()
			})

			It("returns ErrNotReconciled", func() {
				Expect(errors.Is(err, ErrNotReconciled)).To(BeTrue())
				Expect(store.CanSave()).To(BeFalse())
			})

			It("should accept the save once the cash-out justification covers the rest", func() {
				Expect(store.UpdateExitField(ledger.FieldCashOutJustificationAmount, dec("50"))).To(Succeed())
				Expect(store.Save()).To(Succeed())
			})
		})

		When("persisting fails", func() {
			BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			JustBeforeEach(func() {
				err = store.Save()
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("disk full")))
			})
		})
	})

	Describe("AddCheckInstallmentSeries", func() {
		It("should append the expanded checks", func() {
			due := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
			added, err := store.AddCheckInstallmentSeries(ledger.CheckSeries{
				Kind:             ledger.CheckPredated,
				Number:           "100",
				ClientName:       "Carlos",
				TotalAmount:      dec("1200"),
				InstallmentCount: 3,
				FirstDueDate:     &due,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(HaveLen(3))
			Expect(store.Snapshot().Entries.Checks).To(HaveLen(3))
			Expect(store.Totals().TotalChecks.StringFixed(2)).To(Equal("1200.00"))
		})

		It("should leave the session untouched on error", func() {
			_, err := store.AddCheckInstallmentSeries(ledger.CheckSeries{
				Kind:        ledger.CheckPredated,
				TotalAmount: dec("10"),
			})
			Expect(errors.Is(err, ledger.ErrInvalidValue)).To(BeTrue())
			Expect(store.Snapshot().Entries.Checks).To(BeEmpty())
		})
	})

	Describe("AddCancellation", func() {
		var (
			saved ledger.Cancellation
			err   error
		)

		JustBeforeEach(func() {
			Expect(store.UpdateEntryField(ledger.FieldCash, "5000")).To(Succeed())
			saved, err = store.AddCancellation(ledger.Cancellation{
				OrderNumber: "1234",
				Seller:      "Rita",
				Reason:      "wrong size",
				Amount:      dec("89.90"),
			})
		})

		When("record creation is allowed", func() {
			It("should assign an ID and the current time", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("cancel-1"))
				Expect(saved.CancelTime).To(Equal(now))
			})

			It("should persist the cancellation without the unsaved edits", func() {
				Expect(db.session.Cancellations).To(HaveLen(1))
				Expect(db.session.Entries.Cash.IsZero()).To(BeTrue())
			})

			It("should keep the unsaved edits in the live session", func() {
				Expect(store.Snapshot().Entries.Cash.StringFixed(2)).To(Equal("50.00"))
				Expect(store.Cancellations()).To(HaveLen(1))
			})

			It("should not affect the balance", func() {
				Expect(store.Totals().Balance.StringFixed(2)).To(Equal("250.00"))
				Expect(store.Totals().TotalCancellations.StringFixed(2)).To(Equal("89.90"))
			})
		})

		When("record creation is blocked", func() {
			BeforeEach(func() {
				access = StaticAccess(false)
			})

			It("returns ErrRecordsBlocked", func() {
				Expect(errors.Is(err, ErrRecordsBlocked)).To(BeTrue())
				Expect(store.Cancellations()).To(BeEmpty())
			})
		})
	})

	Describe("Clear", func() {
		var later time.Time

		JustBeforeEach(func() {
			Expect(store.UpdateEntryField(ledger.FieldCash, "5000")).To(Succeed())
			Expect(store.AddListItem(ledger.ListRefunds, ledger.Refund{TaxID: "123", Amount: dec("5")})).To(Succeed())
			_, err := store.AddCancellation(ledger.Cancellation{OrderNumber: "1", Amount: dec("3")})
			Expect(err).NotTo(HaveOccurred())

			later = now.Add(10 * time.Hour)
			timeSource.now = later
		})

		When("persisting succeeds", func() {
			JustBeforeEach(func() {
				Expect(store.Clear()).To(Succeed())
			})

			It("should reset monetary fields and lists", func() {
				s := store.Snapshot()
				Expect(s.Entries.Cash.IsZero()).To(BeTrue())
				Expect(s.Exits.Refunds).To(BeEmpty())
				Expect(s.Entries.CashFund.StringFixed(2)).To(Equal("200.00"))
				Expect(s.OpenedAt).To(Equal(later))
			})

			It("should keep the cancellation log", func() {
				Expect(store.Cancellations()).To(HaveLen(1))
			})

			It("should persist the fresh session", func() {
				Expect(db.session.Entries.Cash.IsZero()).To(BeTrue())
				Expect(db.session.Cancellations).To(HaveLen(1))
				Expect(store.HasChanges()).To(BeFalse())
			})
		})

		When("persisting fails", func() {
			JustBeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			It("should keep the session intact", func() {
				Expect(store.Clear()).To(MatchError(ContainSubstring("disk full")))
				Expect(store.Snapshot().Entries.Cash.StringFixed(2)).To(Equal("50.00"))
			})
		})
	})

	Describe("View", func() {
		It("should report totals and reconciliation together", func() {
			Expect(store.UpdateEntryField(ledger.FieldPixAccount, dec("30"))).To(Succeed())
			view := store.View()
			Expect(view.Totals.Balance.StringFixed(2)).To(Equal("230.00"))
			Expect(view.Reconciliation.PixAccount.Active).To(BeTrue())
			Expect(view.Reconciliation.PixAccount.Matches).To(BeFalse())
			Expect(view.CanSave).To(BeFalse())
			Expect(view.HasChanges).To(BeTrue())
		})
	})
})
