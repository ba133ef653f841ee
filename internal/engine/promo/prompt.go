package promo

import "fmt"

// LLM prompt templates. Data only.

// extractPrompt is the few-shot extraction prompt. The model continues after
// "Output:". Args: description (already truncated).
// Literal percent signs are doubled for fmt.
const extractPrompt = `Extract sponsor/brand, promo code, and discount from YouTube descriptions. Return JSON format with these exact keys: brand, code, discount.

IMPORTANT: Only extract if there is a clear sponsorship or promotional offer. If no promo code or sponsor exists, return null for all fields.

Example 1:
Input: "Pour découvrir les offres VPS d'Hostinger : https://www.hostinger.fr/solene. En plus de l'offre Black Friday, profite de réductions supplémentaires avec le code SOLENE. Encore un grand merci à Hostinger!"
Output: {"brand": "Hostinger", "code": "SOLENE", "discount": "Black Friday + extra discount"}

Example 2:
Input: "Hey everyone! This video is sponsored by Squarespace. Get 10%% off your first purchase using code TECH2023 at checkout."
Output: {"brand": "Squarespace", "code": "TECH2023", "discount": "10%% off"}

Example 3:
Input: "Sponsored by Brilliant. Use code SCIENCE for 20%% off premium."
Output: {"brand": "Brilliant", "code": "SCIENCE", "discount": "20%% off premium"}

Example 4:
Input: "In this tutorial, we'll learn Python basics. No sponsors today, just pure content! Follow me on Twitter."
Output: {"brand": null, "code": null, "discount": null}

Example 5:
Input: "Check out my GitHub repo for the code. Thanks for watching!"
Output: {"brand": null, "code": null, "discount": null}

Now extract from:
Input: "%s"
Output:`

// BuildPrompt renders the extraction prompt around text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(extractPrompt, text)
}
