package normalize

// Canonical conversion fields populated by precedence resolution.
const (
	FieldReservations     = "reservations"
	FieldReservationValue = "reservation_value"
	FieldBookingStep1     = "booking_step_1"
	FieldBookingStep2     = "booking_step_2"
	FieldBookingStep3     = "booking_step_3"
	FieldEmailContacts    = "email_contacts"
	FieldPhoneContacts    = "phone_contacts"
)

// Rule maps one canonical field to an ordered tag precedence list. The first
// tag present in the campaign's action map wins; later tags are ignored even
// when present, because they describe the same business event. FromValues
// selects the monetary action_values map instead of the count map.
type Rule struct {
	Field      string   `yaml:"field"`
	Tags       []string `yaml:"tags"`
	FromValues bool     `yaml:"from_values"`
}

// DefaultRules returns the built-in precedence table. Tenant-specific custom
// event tags, when configured, are consulted before the platform defaults
// for the contact fields.
func DefaultRules(emailTags, phoneTags []string) []Rule {
	purchase := []string{"omni_purchase", "offsite_conversion.fb_pixel_purchase"}
	return []Rule{
		{Field: FieldReservations, Tags: purchase},
		{Field: FieldReservationValue, Tags: purchase, FromValues: true},
		{Field: FieldBookingStep1, Tags: []string{"omni_search", "offsite_conversion.fb_pixel_search"}},
		{Field: FieldBookingStep2, Tags: []string{"omni_view_content", "offsite_conversion.fb_pixel_view_content"}},
		{Field: FieldBookingStep3, Tags: []string{"omni_initiated_checkout", "offsite_conversion.fb_pixel_initiate_checkout"}},
		{Field: FieldEmailContacts, Tags: append(append([]string{}, emailTags...), "lead", "onsite_conversion.lead_grouped")},
		{Field: FieldPhoneContacts, Tags: append(append([]string{}, phoneTags...), "click_to_call_call_confirm")},
	}
}
