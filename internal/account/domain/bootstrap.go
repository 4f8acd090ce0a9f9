package domain

// SeedAccount describes an account created at startup when missing.
type SeedAccount struct {
	Email     string
	Password  string
	Name      string
	Role      Role
	Active    bool
	Protected bool
}
