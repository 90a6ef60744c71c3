// internal/lifecycle/domain.go
package lifecycle

import (
	"fmt"
	"time"

	"mediatheque/internal/recordstore"
)

// Kind names one of the three record collections.
type Kind string

const (
	KindSubscriber Kind = "subscriber"
	KindDocument   Kind = "document"
	KindLoan       Kind = "loan"
)

// Subscriber fields.
const (
	FieldName             = "nom"
	FieldFirstName        = "prenom"
	FieldAddress          = "adresse"
	FieldRegistrationDate = "date_inscription"
)

// Document fields.
const (
	FieldTitle    = "title"
	FieldAuthor   = "author"
	FieldCategory = "category"
	FieldYear     = "annee"
)

// Loan fields.
const (
	FieldSubscriberRef = "abonnee"
	FieldDocumentRef   = "document"
	FieldLoanDate      = "date_emprunt"
	FieldReturnDate    = "date_retour"
)

const (
	// RegistrationDateLayout is DD/MM/YYYY.
	RegistrationDateLayout = "02/01/2006"
	// ReturnDateLayout is the literal YYYY-MM-DD form in which return dates are
	// stored and compared by the expiry cleanup.
	ReturnDateLayout = "2006-01-02"
)

// Policy is the per-kind rule set applied by the manager.
type Policy struct {
	Kind       Kind
	Noun       string
	Collection string
	Required   []string
	// Mutable lists the fields an update may touch. Nil accepts any field except
	// the identifier.
	Mutable    []string
	Projection []string

	prepare func(rec recordstore.Record, now time.Time) error
}

var policies = map[Kind]Policy{
	KindSubscriber: {
		Kind:       KindSubscriber,
		Noun:       "Subscriber",
		Collection: recordstore.SubscribersCollection,
		Required:   []string{FieldName, FieldFirstName},
		Projection: []string{FieldName, FieldFirstName, FieldAddress, FieldRegistrationDate},
		prepare:    stampRegistrationDate,
	},
	KindDocument: {
		Kind:       KindDocument,
		Noun:       "Document",
		Collection: recordstore.DocumentsCollection,
		Required:   []string{FieldTitle, FieldAuthor, FieldCategory, FieldYear},
		Projection: []string{FieldTitle, FieldAuthor, FieldCategory, FieldYear},
	},
	KindLoan: {
		Kind:       KindLoan,
		Noun:       "Loan",
		Collection: recordstore.LoansCollection,
		Required:   []string{FieldSubscriberRef, FieldDocumentRef, FieldLoanDate, FieldReturnDate},
		// date_retour is fixed at creation.
		Mutable:    []string{FieldSubscriberRef, FieldDocumentRef, FieldLoanDate},
		Projection: []string{FieldSubscriberRef, FieldDocumentRef, FieldLoanDate, FieldReturnDate},
		prepare:    checkReturnDate,
	},
}

// PolicyFor returns the policy of kind.
func PolicyFor(kind Kind) (Policy, error) {
	p, ok := policies[kind]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return p, nil
}

// Kinds lists every kind served.
func Kinds() []Kind {
	return []Kind{KindSubscriber, KindDocument, KindLoan}
}

func stampRegistrationDate(rec recordstore.Record, now time.Time) error {
	rec[FieldRegistrationDate] = now.Format(RegistrationDateLayout)
	return nil
}

func checkReturnDate(rec recordstore.Record, _ time.Time) error {
	return ValidateReturnDate(rec[FieldReturnDate])
}
