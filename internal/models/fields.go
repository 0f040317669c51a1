package models

// StandardField is a canonical column name together with the source column
// names known to mean the same thing.
type StandardField struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// DefaultStandardFields is the built-in alias enumeration. Order matters:
// when an alias is listed under several fields the earliest field wins.
var DefaultStandardFields = []StandardField{
	{Name: "vendor_id", Aliases: []string{"Vendor ID", "Vendor Number", "Vendor identifier", "Vendor ID Number"}},
	{Name: "vendor_name", Aliases: []string{"Vendor name", "Name", "Vendor Name", "Description"}},
	{Name: "address", Aliases: []string{"Address", "Company Address"}},
	{Name: "postal_code", Aliases: []string{"ZIP/postcode", "ZIP", "Postcode"}},
	{Name: "city", Aliases: []string{"City"}},
	{Name: "country", Aliases: []string{"Country"}},
	{Name: "email", Aliases: []string{"Email", "Email for Contact"}},
	{Name: "vat_number", Aliases: []string{"VAT Code", "VAT-No"}},
	{Name: "currency", Aliases: []string{"Currency", "Currency code"}},
	{Name: "iban", Aliases: []string{"IBAN"}},
	{Name: "bic", Aliases: []string{"BIC"}},
	{Name: "bank_name", Aliases: []string{"Bank Name", "Bank name"}},
	{Name: "bank_country", Aliases: []string{"Bank country", "Bank Country"}},
	{Name: "company_entities", Aliases: []string{"Company entities"}},
	{Name: "group", Aliases: []string{"Vendor Group", "Groups", "Group"}},
	{Name: "payment_terms", Aliases: []string{"Payment terms"}},
	{Name: "bank_account_number", Aliases: []string{"Bank Account Number"}},
	{Name: "bank_code", Aliases: []string{"Bank Code"}},
	{Name: "norwegian_bankgiro_number", Aliases: []string{"Norwegian Bankgiro Number"}},
	{Name: "owner", Aliases: []string{"Owner"}},
}

// FieldCatalog resolves source column names to standard fields through an
// inverted alias index built once.
type FieldCatalog struct {
	fields  []StandardField
	byAlias map[string]string
	names   map[string]bool
}

// NewFieldCatalog builds a catalog from an ordered field list.
func NewFieldCatalog(fields []StandardField) *FieldCatalog {
	c := &FieldCatalog{
		fields:  fields,
		byAlias: make(map[string]string),
		names:   make(map[string]bool, len(fields)),
	}

	for _, f := range fields {
		c.names[f.Name] = true

		for _, alias := range f.Aliases {
			if _, taken := c.byAlias[alias]; !taken {
				c.byAlias[alias] = f.Name
			}
		}
	}

	return c
}

// DefaultFieldCatalog returns a catalog over DefaultStandardFields.
func DefaultFieldCatalog() *FieldCatalog {
	return NewFieldCatalog(DefaultStandardFields)
}

// Resolve returns the standard field whose alias set contains column verbatim.
func (c *FieldCatalog) Resolve(column string) (string, bool) {
	name, ok := c.byAlias[column]
	return name, ok
}

// IsStandard reports whether name is one of the enumerated standard fields.
func (c *FieldCatalog) IsStandard(name string) bool {
	return c.names[name]
}

// Names returns the standard field names in declaration order.
func (c *FieldCatalog) Names() []string {
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}

	return names
}
