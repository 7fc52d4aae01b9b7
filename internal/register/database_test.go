package register

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/zombor/caixa/internal/ledger"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "caixa.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("LoadSession", func() {
		When("nothing was saved", func() {
			It("should return nil without error", func() {
				session, err := db.LoadSession()
				Expect(err).NotTo(HaveOccurred())
				Expect(session).To(BeNil())
			})
		})

		When("a session was saved", func() {
			var saved ledger.Session

			BeforeEach(func() {
				due := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
				saved = ledger.NewSession(dec("200"), time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
				saved.Entries.Cash = dec("10.10")
				saved.Entries.Checks = []ledger.Check{{Number: "1-1", Amount: dec("0.30"), DueDate: &due}}
				saved.Exits.MailShipments = []ledger.MailShipment{{Type: ledger.ShipmentSEDEX, State: "SP", Amount: dec("25.5")}}
				Expect(db.SaveSession(&saved)).To(Succeed())
			})

			It("should round-trip the amounts exactly", func() {
				loaded, err := db.LoadSession()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.Entries.Cash.Equal(dec("10.10"))).To(BeTrue())
				Expect(loaded.Entries.Checks[0].Amount.Equal(dec("0.30"))).To(BeTrue())
				Expect(loaded.Entries.Checks[0].DueDate.Equal(*saved.Entries.Checks[0].DueDate)).To(BeTrue())
			})

			It("should survive reopening the file", func() {
				Expect(db.Close()).To(Succeed())
				var err error
				db, err = NewBoltDB(dbPath)
				Expect(err).NotTo(HaveOccurred())

				loaded, err := db.LoadSession()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.Exits.MailShipments).To(HaveLen(1))
			})
		})
	})

	Describe("close-outs", func() {
		BeforeEach(func() {
			at := time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)
			for i, id := range []string{"b", "a"} {
				report, err := NewReport(id, "Joana", ledger.NewSession(dec("200"), at), at.AddDate(0, 0, -i))
				Expect(err).NotTo(HaveOccurred())
				Expect(db.SaveCloseOut(report)).To(Succeed())
			}
		})

		It("should retrieve a close-out by ID", func() {
			report, err := db.GetCloseOut("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Operator).To(Equal("Joana"))
			Expect(report.Markdown).To(ContainSubstring("Fechamento de Caixa"))
		})

		It("should return ErrNoReport for an unknown ID", func() {
			_, err := db.GetCloseOut("missing")
			Expect(errors.Is(err, ErrNoReport)).To(BeTrue())
		})

		When("an archived record is corrupt", func() {
			BeforeEach(func() {
				Expect(db.db.Update(func(tx *bbolt.Tx) error {
					return tx.Bucket([]byte(closeOutBucketName)).Put([]byte("broken"), []byte("{not json"))
				})).To(Succeed())
			})

			It("should return an error other than ErrNoReport", func() {
				_, err := db.GetCloseOut("broken")
				Expect(err).To(MatchError(ContainSubstring("unmarshaling close-out")))
				Expect(errors.Is(err, ErrNoReport)).To(BeFalse())
			})
		})

		It("should list close-outs oldest first", func() {
			reports, err := db.ListCloseOuts()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(2))
			Expect(reports[0].ID).To(Equal("a"))
			Expect(reports[1].ID).To(Equal("b"))
		})
	})
})
