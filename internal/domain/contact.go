package domain

// Contact is an address book entry owned by exactly one user
type Contact struct {
	ID             int64   `json:"id" db:"id"`
	FirstName      string  `json:"first_name" db:"first_name"`
	LastName       string  `json:"last_name" db:"last_name"`
	Email          string  `json:"email" db:"email"`
	Phone          string  `json:"phone" db:"phone"`
	BirthDate      Date    `json:"birth_date" db:"birth_date"`
	AdditionalData *string `json:"additional_data" db:"additional_data"`
	UserID         int64   `json:"-" db:"user_id"`
}

// ContactFields are the mutable fields of a contact, replaced as a whole on update
type ContactFields struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	BirthDate      Date
	AdditionalData *string
}

// ContactFilter selects a page of an owner's contacts
type ContactFilter struct {
	Skip  int
	Limit int
	Query string
}
