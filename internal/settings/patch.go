package settings

import (
	"fmt"
	"net/url"
	"sort"
)

// Patch is a partial update. Nil fields are left untouched by Apply, so a
// patch naming one nested leaf keeps all of its siblings.
type Patch struct {
	Title              *string           `json:"title,omitempty"`
	HeroImage          *string           `json:"heroImage,omitempty"`
	SignUpInstructions *string           `json:"signUpInstructions,omitempty"`
	AboutTitle         *string           `json:"aboutTitle,omitempty"`
	AboutContent       *string           `json:"aboutContent,omitempty"`
	AboutImage         *string           `json:"aboutImage,omitempty"`
	ContactTitle       *string           `json:"contactTitle,omitempty"`
	ContactSubtitle    *string           `json:"contactSubtitle,omitempty"`
	Services           *ServicesPatch    `json:"services,omitempty"`
	FooterText         *string           `json:"footerText,omitempty"`
	SocialMedia        *SocialMediaPatch `json:"socialMedia,omitempty"`
}

type ServicesPatch struct {
	PrivateDinnerDescription *string `json:"privateDinnerDescription,omitempty"`
	CookingClassDescription  *string `json:"cookingClassDescription,omitempty"`
	CateringDescription      *string `json:"cateringDescription,omitempty"`
	ConsultationDescription  *string `json:"consultationDescription,omitempty"`
}

type SocialMediaPatch struct {
	Instagram *string `json:"instagram,omitempty"`
	Facebook  *string `json:"facebook,omitempty"`
	Twitter   *string `json:"twitter,omitempty"`
}

// String returns a pointer to v, for building patches inline.
func String(v string) *string {
	return &v
}

// values flattens the set fields of p into dotted paths.
func (p Patch) values() map[string]string {
	out := map[string]string{}
	put := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	put("title", p.Title)
	put("heroImage", p.HeroImage)
	put("signUpInstructions", p.SignUpInstructions)
	put("aboutTitle", p.AboutTitle)
	put("aboutContent", p.AboutContent)
	put("aboutImage", p.AboutImage)
	put("contactTitle", p.ContactTitle)
	put("contactSubtitle", p.ContactSubtitle)
	if p.Services != nil {
		put("services.privateDinnerDescription", p.Services.PrivateDinnerDescription)
		put("services.cookingClassDescription", p.Services.CookingClassDescription)
		put("services.cateringDescription", p.Services.CateringDescription)
		put("services.consultationDescription", p.Services.ConsultationDescription)
	}
	put("footerText", p.FooterText)
	if p.SocialMedia != nil {
		put("socialMedia.instagram", p.SocialMedia.Instagram)
		put("socialMedia.facebook", p.SocialMedia.Facebook)
		put("socialMedia.twitter", p.SocialMedia.Twitter)
	}
	return out
}

// Fields returns the dotted paths the patch sets, sorted.
func (p Patch) Fields() []string {
	vals := p.values()
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.values()) == 0
}

// Apply returns a copy of s with every set field of p written over it.
func (s SiteSettings) Apply(p Patch) SiteSettings {
	out := s
	for key, v := range p.values() {
		*fieldsByKey[key].ref(&out) = v
	}
	return out
}

// Scope fails if p sets any field outside section.
func (p Patch) Scope(section Section) error {
	for _, key := range p.Fields() {
		if fieldsByKey[key].section != section {
			return fmt.Errorf("%w: %s is not in %s", ErrOutOfSection, key, section)
		}
	}
	return nil
}

// PatchFromValues builds a patch from dotted paths.
func PatchFromValues(values map[string]string) (Patch, error) {
	var p Patch
	for key, v := range values {
		v := v
		switch key {
		case "title":
			p.Title = &v
		case "heroImage":
			p.HeroImage = &v
		case "signUpInstructions":
			p.SignUpInstructions = &v
		case "aboutTitle":
			p.AboutTitle = &v
		case "aboutContent":
			p.AboutContent = &v
		case "aboutImage":
			p.AboutImage = &v
		case "contactTitle":
			p.ContactTitle = &v
		case "contactSubtitle":
			p.ContactSubtitle = &v
		case "footerText":
			p.FooterText = &v
		case "services.privateDinnerDescription":
			p.services().PrivateDinnerDescription = &v
		case "services.cookingClassDescription":
			p.services().CookingClassDescription = &v
		case "services.cateringDescription":
			p.services().CateringDescription = &v
		case "services.consultationDescription":
			p.services().ConsultationDescription = &v
		case "socialMedia.instagram":
			p.socialMedia().Instagram = &v
		case "socialMedia.facebook":
			p.socialMedia().Facebook = &v
		case "socialMedia.twitter":
			p.socialMedia().Twitter = &v
		default:
			return Patch{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return p, nil
}

func (p *Patch) services() *ServicesPatch {
	if p.Services == nil {
		p.Services = &ServicesPatch{}
	}
	return p.Services
}

func (p *Patch) socialMedia() *SocialMediaPatch {
	if p.SocialMedia == nil {
		p.SocialMedia = &SocialMediaPatch{}
	}
	return p.SocialMedia
}

// FormPatch reads the fields of one editor tab from a submitted form.
// Inputs absent from the form are left unset; other sections are ignored.
func FormPatch(section Section, form url.Values) Patch {
	values := map[string]string{}
	for _, key := range SectionKeys(section) {
		if _, ok := form[key]; ok {
			values[key] = form.Get(key)
		}
	}
	p, _ := PatchFromValues(values)
	return p
}
