package alarm

// ContactType tags a contact entry with the channel it belongs to.
type ContactType string

const (
	// ContactTypeSMS marks a contact number reachable by SMS.
	ContactTypeSMS ContactType = "sms"
	// ContactTypeEmail marks an email address. The bridge ignores these,
	// they exist because user records carry every registered channel.
	ContactTypeEmail ContactType = "email"
)

// ContactInfo is one entry from a user's contact directory.
type ContactInfo struct {
	// Type is the channel tag of this entry.
	Type ContactType
	// Value is the raw address or number as entered in the directory.
	Value string
}

// User identifies the recipient of a notification batch.
type User struct {
	// Name is the user's path in the user directory, used for
	// acknowledgment metadata and audit records.
	Name string
	// Contacts holds every registered contact entry for the user.
	Contacts []ContactInfo
}

// SMSNumbers returns the user's SMS-capable contact numbers in directory order.
func (u *User) SMSNumbers() []string {
	if u == nil {
		return nil
	}

	numbers := make([]string, 0, len(u.Contacts))

	for _, contact := range u.Contacts {
		if contact.Type == ContactTypeSMS {
			numbers = append(numbers, contact.Value)
		}
	}

	return numbers
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	cloned := &User{
		Name:     u.Name,
		Contacts: make([]ContactInfo, len(u.Contacts)),
	}
	copy(cloned.Contacts, u.Contacts)

	return cloned
}
