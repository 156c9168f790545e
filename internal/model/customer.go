package model

import "time"

// Customer is a person renting vehicles.  DocumentID is the national
// identity or passport number used on contracts; LicenseNumber is the
// driving license.
type Customer struct {
    ID            uint64    // customers.id
    FullName      string    // customers.full_name
    Email         string    // customers.email
    Phone         string    // customers.phone
    DocumentID    string    // customers.document_id
    LicenseNumber string    // customers.license_number
    CreatedAt     time.Time // customers.created_at
    UpdatedAt     time.Time // customers.updated_at
}
