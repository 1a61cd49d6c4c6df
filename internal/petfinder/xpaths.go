package petfinder

// Absolute XPaths into petfinder.com page layouts. Brittle by nature:
// when the site markup shifts, these are the first thing to update.

// detailTextXPaths locate the text fields on a pet detail page. The name
// heading reads "About {name}" and is stripped during parsing.
var detailTextXPaths = map[string]string{
	"name":            "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[1]/div/div[1]/h2",
	"location":        "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[1]/div/div[1]/div/p",
	"age":             "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[3]/div/div[1]/div/div[1]/div[1]/div",
	"gender":          "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[3]/div/div[1]/div/div[1]/div[2]/span",
	"size":            "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[3]/div/div[1]/div/div[1]/div[3]/div",
	"color":           "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[3]/div/div[1]/div/div[2]/div/span",
	"breed":           "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[2]/div[2]/div/div",
	"spayed_neutered": "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[4]/div/div/div[1]/div",
	"vaccinated":      "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[4]/div/div/div[2]/div",
	"special_needs":   "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/div[4]/div/div/div[3]/div",
	"kids_compatible": "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/section/ul/div[1]/div/p[3]",
	"dogs_compatible": "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/section/ul/div[2]/div/p[3]",
	"cats_compatible": "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[3]/section/ul/div[3]/div/p[3]",
	"about_me":        "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[4]/div",
}

// showMoreButtonXPath locates the expander that unfolds the full
// description text. Clicked before reading text fields when present.
const showMoreButtonXPath = "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[4]/div/button[2]"

// detailImageXPath locates the primary photo on a pet detail page.
const detailImageXPath = "/html/body/div[2]/div/div/section/section/main/main/div/div[1]/section/section[1]/div/div[2]/div/div[1]/img"

// searchLinkXPaths locate the result-card anchors on a search page. The
// grid interleaves cards with ads and promos, so the card positions are
// irregular.
var searchLinkXPaths = []string{
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[1]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[2]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[3]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[5]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[6]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[9]/div[2]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[9]/div[4]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[9]/div[5]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[10]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[11]/div/div[1]/div/div[3]/div/a",
	"/html/body/div[2]/div/div/section/section/main/div/section/div/div[2]/div[12]/div/div[1]/div/div[3]/div/a",
}
