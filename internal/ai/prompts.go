package ai

import (
	"fmt"
	"strings"

	"organizer/internal/models"
)

const systemInstruction = `You help a couple organize restaurants, recipes, drinks and dates.
Write every human-readable value (titles, notes, descriptions, ingredient names, steps)
in Brazilian Portuguese. Never invent facts you cannot support; leave a field empty or
null instead. Answer only with the requested JSON.`

func ingredientsPrompt(text string) string {
	return fmt.Sprintf(`Extract the ingredients from the text below.
Split quantity and unit from the name when they are present (e.g. "2 xícaras de farinha"
becomes name "farinha", quantity 2, unit "xícara"). Put remarks such as "picado" or
"a gosto" in note. Ignore anything that is not an ingredient.

Text:
%s`, text)
}

func importRecipePrompt(text string, hasImage bool) string {
	var b strings.Builder
	b.WriteString("Turn the recipe below into structured data.\n")
	if hasImage {
		b.WriteString("A photo of the recipe is attached; read it when the text is incomplete.\n")
	}
	b.WriteString(`Keep steps in order, one action per step. Servings and prep_minutes are 0 when unknown.
Category is one of: entrada, prato principal, acompanhamento, sobremesa, lanche, bebida, outro.
`)
	if strings.TrimSpace(text) != "" {
		b.WriteString("\nRecipe:\n")
		b.WriteString(text)
	}
	return b.String()
}

func nutritionPrompt(recipe models.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate the nutrition facts per serving of the recipe %q.\n", recipe.Title)
	servings := recipe.Servings
	if servings <= 0 {
		servings = 1
	}
	fmt.Fprintf(&b, "It yields %d serving(s).\nIngredients:\n", servings)
	for _, ingredient := range recipe.Ingredients {
		b.WriteString("- ")
		if ingredient.Quantity != nil {
			fmt.Fprintf(&b, "%g ", *ingredient.Quantity)
		}
		if ingredient.Unit != "" {
			b.WriteString(ingredient.Unit + " ")
		}
		b.WriteString(ingredient.Name)
		if ingredient.Note != "" {
			b.WriteString(" (" + ingredient.Note + ")")
		}
		b.WriteByte('\n')
	}
	b.WriteString("Use typical values from nutrition tables. Calories in kcal, the rest in grams.")
	return b.String()
}

func discoverRestaurantsPrompt(query, neighborhood, city string) string {
	where := city
	if neighborhood != "" {
		where = neighborhood + ", " + city
	}
	return fmt.Sprintf(`Search the web for restaurants in %s matching: %s.
Return up to 8 places that are currently open for business, as a JSON array of objects with
the keys name, category, cuisine, price_range (1 to 4, 0 when unknown), google_rating
(number or null), address, neighborhood, website, instagram, description, lat, lng
(numbers or null).`, where, query)
}

func enrichRestaurantPrompt(name, address, city string) string {
	if address == "" {
		address = city
	}
	return fmt.Sprintf(`Search the web for the restaurant %q at %s.
Return a single JSON object with the keys name, category, cuisine, price_range (1 to 4, 0 when
unknown), google_rating (number or null), address, neighborhood, website, instagram,
description, lat, lng (numbers or null).`, name, address)
}

func geocodePrompt(address, city string) string {
	return fmt.Sprintf(`Find the geographic coordinates of this address in %s: %s
Return a JSON object {"lat": number, "lng": number}. Use null for both when the address
cannot be located.`, city, address)
}

func discoverRecipesPrompt(query string) string {
	return fmt.Sprintf(`Search the web for recipes matching: %s.
Prefer Brazilian recipe sites. Return up to 5 recipes as a JSON array of objects with the keys
title, category, servings, prep_minutes, ingredients (array of {name, quantity, unit, note}),
steps (array of strings), tags (array of strings) and source_url.`, query)
}

func datePlanPrompt(prompt, date, city string) string {
	when := "soon"
	if date != "" {
		when = "on " + date
	}
	return fmt.Sprintf(`Plan a date in %s %s. The couple asked for: %s
Check the web for places that are open then. Return a JSON object with the keys title,
stops (ordered array of short descriptions, each naming a place), budget (estimated total in
BRL for two) and notes.`, city, when, prompt)
}
