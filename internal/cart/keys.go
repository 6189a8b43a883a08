package cart

import "fmt"

// UsedDiscountEmailsKey holds the global list of emails that consumed the
// newsletter discount.
const UsedDiscountEmailsKey = "usedDiscountEmails"

func LinesKey(profileID string) string {
	return fmt.Sprintf("profile:%s:cartItems", profileID)
}

func PersonalizationsKey(profileID string) string {
	return fmt.Sprintf("profile:%s:personalizations", profileID)
}

func subscribedEmailKey(profileID string) string {
	return fmt.Sprintf("profile:%s:subscribedEmail", profileID)
}

func newsletterFlagKey(profileID string) string {
	return fmt.Sprintf("profile:%s:newsletterSubscribed", profileID)
}
