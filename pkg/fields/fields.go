// Package fields defines the canonical field vocabulary for the intake
// engine. Extraction normalizes every document's native field naming into
// this fixed vocabulary before observations are recorded, so the rest of
// the system never sees document-specific field names.
package fields

import "sort"

// ID is a canonical field identifier, stable across document types.
type ID string

// The canonical vocabulary.
const (
	FirstName           ID = "firstName"
	MiddleName          ID = "middleName"
	LastName            ID = "lastName"
	FullName            ID = "fullName"
	DateOfBirth         ID = "dateOfBirth"
	Gender              ID = "gender"
	Nationality         ID = "nationality"
	PassportNumber      ID = "passportNumber"
	NationalID          ID = "nationalId"
	DriverLicenseNumber ID = "driverLicenseNumber"
	TaxID               ID = "taxId"
	AccountNumber       ID = "accountNumber"
	Email               ID = "email"
	Phone               ID = "phone"
	AddressLine1        ID = "addressLine1"
	AddressLine2        ID = "addressLine2"
	City                ID = "city"
	State               ID = "state"
	PostalCode          ID = "postalCode"
	Country             ID = "country"
	IssueDate           ID = "issueDate"
	ExpiryDate          ID = "expiryDate"
	Employer            ID = "employer"
	Occupation          ID = "occupation"
	AnnualIncome        ID = "annualIncome"
)

// String returns the string representation of the field ID.
func (id ID) String() string {
	return string(id)
}

// Kind is the semantic type of a field's value. Normalization, equivalence,
// and form-field type compatibility are all keyed on it.
type Kind int

// Supported field kinds.
const (
	KindText Kind = iota
	KindName
	KindDate
	KindNumber
	KindCurrency
	KindEmail
	KindPhone
	KindIdentifier
	KindAddress
	KindBoolean
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindName:
		return "name"
	case KindDate:
		return "date"
	case KindNumber:
		return "number"
	case KindCurrency:
		return "currency"
	case KindEmail:
		return "email"
	case KindPhone:
		return "phone"
	case KindIdentifier:
		return "identifier"
	case KindAddress:
		return "address"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// ParseKind converts a string into a Kind. Unknown strings map to KindText,
// matching how target-form schemas with unrecognized types are treated.
func ParseKind(s string) Kind {
	for k := KindText; k <= KindBoolean; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindText
}

// Spec describes one canonical field: its display name, semantic kind, the
// form-label aliases it is known by, and whether disagreements on it are
// safety-critical (identity numbers and dates of birth always conflict
// rather than auto-resolve).
type Spec struct {
	ID             ID
	Display        string
	Kind           Kind
	Aliases        []string
	SafetyCritical bool
}

var registry = map[ID]Spec{
	FirstName: {
		ID: FirstName, Display: "First Name", Kind: KindName,
		Aliases: []string{"first name", "given name", "forename", "applicant first name"},
	},
	MiddleName: {
		ID: MiddleName, Display: "Middle Name", Kind: KindName,
		Aliases: []string{"middle name", "middle initial"},
	},
	LastName: {
		ID: LastName, Display: "Last Name", Kind: KindName,
		Aliases: []string{"last name", "family name", "surname", "applicant last name"},
	},
	FullName: {
		ID: FullName, Display: "Full Name", Kind: KindName,
		Aliases: []string{"full name", "complete name", "name", "applicant name", "name of applicant"},
	},
	DateOfBirth: {
		ID: DateOfBirth, Display: "Date of Birth", Kind: KindDate,
		Aliases:        []string{"date of birth", "birth date", "dob", "birthdate", "born"},
		SafetyCritical: true,
	},
	Gender: {
		ID: Gender, Display: "Gender", Kind: KindText,
		Aliases: []string{"gender", "sex"},
	},
	Nationality: {
		ID: Nationality, Display: "Nationality", Kind: KindText,
		Aliases: []string{"nationality", "citizenship"},
	},
	PassportNumber: {
		ID: PassportNumber, Display: "Passport Number", Kind: KindIdentifier,
		Aliases:        []string{"passport number", "passport no", "passport"},
		SafetyCritical: true,
	},
	NationalID: {
		ID: NationalID, Display: "National ID", Kind: KindIdentifier,
		Aliases:        []string{"national id", "national identity number", "id number", "ssn", "social security number"},
		SafetyCritical: true,
	},
	DriverLicenseNumber: {
		ID: DriverLicenseNumber, Display: "Driver License Number", Kind: KindIdentifier,
		Aliases:        []string{"driver license number", "drivers license", "driving licence number", "license number"},
		SafetyCritical: true,
	},
	TaxID: {
		ID: TaxID, Display: "Tax ID", Kind: KindIdentifier,
		Aliases:        []string{"tax id", "tax identification number", "tin", "taxpayer id"},
		SafetyCritical: true,
	},
	AccountNumber: {
		ID: AccountNumber, Display: "Account Number", Kind: KindIdentifier,
		Aliases:        []string{"account number", "account no", "iban", "bank account number"},
		SafetyCritical: true,
	},
	Email: {
		ID: Email, Display: "Email Address", Kind: KindEmail,
		Aliases: []string{"email", "email address", "e-mail", "electronic mail"},
	},
	Phone: {
		ID: Phone, Display: "Phone Number", Kind: KindPhone,
		Aliases: []string{"phone", "phone number", "telephone", "mobile", "mobile number", "cell phone"},
	},
	AddressLine1: {
		ID: AddressLine1, Display: "Address Line 1", Kind: KindAddress,
		Aliases: []string{"address", "address line 1", "street address", "home address", "mailing address"},
	},
	AddressLine2: {
		ID: AddressLine2, Display: "Address Line 2", Kind: KindAddress,
		Aliases: []string{"address line 2", "apartment", "unit", "suite"},
	},
	City: {
		ID: City, Display: "City", Kind: KindAddress,
		Aliases: []string{"city", "town", "locality"},
	},
	State: {
		ID: State, Display: "State", Kind: KindAddress,
		Aliases: []string{"state", "province", "region"},
	},
	PostalCode: {
		ID: PostalCode, Display: "Postal Code", Kind: KindAddress,
		Aliases: []string{"postal code", "zip", "zip code", "postcode"},
	},
	Country: {
		ID: Country, Display: "Country", Kind: KindAddress,
		Aliases: []string{"country", "country of residence"},
	},
	IssueDate: {
		ID: IssueDate, Display: "Issue Date", Kind: KindDate,
		Aliases: []string{"issue date", "date of issue", "issued on"},
	},
	ExpiryDate: {
		ID: ExpiryDate, Display: "Expiry Date", Kind: KindDate,
		Aliases: []string{"expiry date", "expiration date", "date of expiry", "valid until"},
	},
	Employer: {
		ID: Employer, Display: "Employer", Kind: KindText,
		Aliases: []string{"employer", "employer name", "company", "company name"},
	},
	Occupation: {
		ID: Occupation, Display: "Occupation", Kind: KindText,
		Aliases: []string{"occupation", "job title", "profession", "position"},
	},
	AnnualIncome: {
		ID: AnnualIncome, Display: "Annual Income", Kind: KindCurrency,
		Aliases: []string{"annual income", "salary", "income", "yearly income", "gross income"},
	},
}

// Lookup returns the spec for a canonical field ID.
func Lookup(id ID) (Spec, bool) {
	spec, ok := registry[id]
	return spec, ok
}

// Known reports whether the ID belongs to the canonical vocabulary.
func Known(id ID) bool {
	_, ok := registry[id]
	return ok
}

// All returns every field spec sorted by ID for deterministic iteration.
func All() []Spec {
	specs := make([]Spec, 0, len(registry))
	for _, spec := range registry {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// SafetyCritical reports whether disagreements on this field must always be
// surfaced as conflicts. Unknown IDs are not safety-critical.
func SafetyCritical(id ID) bool {
	return registry[id].SafetyCritical
}

// KindOf returns the semantic kind of a canonical field. Unknown IDs report
// KindText.
func KindOf(id ID) Kind {
	return registry[id].Kind
}

// Identity fields considered strong signals for person clustering.

// IdentityNumbers lists the identity-document number fields. An exact match
// on any of them is treated as an unambiguous same-person signal.
func IdentityNumbers() []ID {
	return []ID{PassportNumber, NationalID, DriverLicenseNumber, TaxID}
}

// StrongIdentity lists the fields used for pairwise cluster similarity:
// full name, date of birth, and the identity-document numbers.
func StrongIdentity() []ID {
	return append([]ID{FullName, DateOfBirth}, IdentityNumbers()...)
}

// Compatible reports whether a canonical field of kind a may be mapped onto
// a target form field of kind b. The table mirrors common intake forms:
// generic text fields accept names, addresses, emails, and phones, and
// number fields accept currency amounts.
func Compatible(a, b Kind) bool {
	if a == b {
		return true
	}
	pairs := map[[2]Kind]bool{
		{KindText, KindName}:       true,
		{KindText, KindAddress}:    true,
		{KindText, KindEmail}:      true,
		{KindText, KindPhone}:      true,
		{KindText, KindIdentifier}: true,
		{KindNumber, KindCurrency}: true,
	}
	return pairs[[2]Kind{a, b}] || pairs[[2]Kind{b, a}]
}
