package register

// AccessControl decides whether the current account may create records
type AccessControl interface {
	CanCreateRecords() bool
}

// StaticAccess grants or denies record creation once, from configuration
type StaticAccess bool

// CanCreateRecords implements AccessControl
func (a StaticAccess) CanCreateRecords() bool {
	return bool(a)
}
