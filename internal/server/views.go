package server

import (
	"chefsite/internal/database"
	"chefsite/internal/settings"
)

type formField struct {
	Key       string
	Label     string
	Value     string
	Multiline bool
	Image     bool
}

type sectionForm struct {
	Name   settings.Section
	Label  string
	Fields []formField
	Upload string
}

var sectionLabels = map[settings.Section]string{
	settings.SectionGeneral:  "General",
	settings.SectionAbout:    "About Page",
	settings.SectionContact:  "Contact Page",
	settings.SectionServices: "Services",
	settings.SectionFooter:   "Footer",
	settings.SectionSocial:   "Social Media",
}

var fieldLabels = map[string]string{
	"title":                             "Page Title",
	"heroImage":                         "Hero Image URL",
	"signUpInstructions":                "Sign Up Instructions",
	"aboutTitle":                        "About Page Title",
	"aboutContent":                      "About Page Content",
	"aboutImage":                        "About Page Image URL",
	"contactTitle":                      "Contact Page Title",
	"contactSubtitle":                   "Contact Page Subtitle",
	"services.privateDinnerDescription": "Private Dinner Description",
	"services.cookingClassDescription":  "Cooking Class Description",
	"services.cateringDescription":      "Catering Description",
	"services.consultationDescription":  "Consultation Description",
	"footerText":                        "Footer Text",
	"socialMedia.instagram":             "Instagram URL",
	"socialMedia.facebook":              "Facebook URL",
	"socialMedia.twitter":               "Twitter URL",
}

var multilineFields = map[string]bool{
	"signUpInstructions":                true,
	"aboutContent":                      true,
	"contactSubtitle":                   true,
	"services.privateDinnerDescription": true,
	"services.cookingClassDescription":  true,
	"services.cateringDescription":      true,
	"services.consultationDescription":  true,
}

var uploadTargets = map[string]string{
	"hero":  "heroImage",
	"about": "aboutImage",
}

// settingsForms lays out the editor tabs for doc.
func settingsForms(doc settings.SiteSettings) []sectionForm {
	var forms []sectionForm
	for _, section := range settings.Sections() {
		form := sectionForm{Name: section, Label: sectionLabels[section]}
		keys := settings.SectionKeys(section)
		for _, key := range keys {
			v, _ := doc.Value(key)
			form.Fields = append(form.Fields, formField{
				Key:       key,
				Label:     fieldLabels[key],
				Value:     v,
				Multiline: multilineFields[key],
				Image:     key == "heroImage" || key == "aboutImage",
			})
		}
		for target, key := range uploadTargets {
			if containsKey(keys, key) {
				form.Upload = target
			}
		}
		forms = append(forms, form)
	}
	return forms
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

type dashboardView struct {
	Forms       []sectionForm
	Tab         settings.Section
	Subscribers int
	Events      int
	Inquiries   []database.Inquiry
	Bookings    int
}

type serviceView struct {
	Slug        string
	Name        string
	Description string
}

// serviceSlugs is also the set of accepted booking service types.
var serviceSlugs = []string{"private-dinner", "cooking-class", "catering", "consultation"}

func servicesOf(doc settings.SiteSettings) []serviceView {
	return []serviceView{
		{"private-dinner", "Private Dinner", doc.Services.PrivateDinnerDescription},
		{"cooking-class", "Cooking Class", doc.Services.CookingClassDescription},
		{"catering", "Catering", doc.Services.CateringDescription},
		{"consultation", "Consultation", doc.Services.ConsultationDescription},
	}
}

func validService(slug string) bool {
	return containsKey(serviceSlugs, slug)
}
