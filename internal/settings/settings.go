// Package settings owns the site settings document: the single record that
// drives every public page and is edited from the admin dashboard.
package settings

import (
	"errors"
	"sort"
	"strings"
)

// CurrentVersion is written into every persisted envelope.
const CurrentVersion = 1

// DocumentKey identifies the settings record in keyed storage.
const DocumentKey = "site_settings"

// SiteSettings is the canonical configuration document. Every field is a
// plain string so a zero value is always renderable.
type SiteSettings struct {
	Title              string      `json:"title"`
	HeroImage          string      `json:"heroImage"`
	SignUpInstructions string      `json:"signUpInstructions"`
	AboutTitle         string      `json:"aboutTitle"`
	AboutContent       string      `json:"aboutContent"`
	AboutImage         string      `json:"aboutImage"`
	ContactTitle       string      `json:"contactTitle"`
	ContactSubtitle    string      `json:"contactSubtitle"`
	Services           Services    `json:"services"`
	FooterText         string      `json:"footerText"`
	SocialMedia        SocialMedia `json:"socialMedia"`
}

type Services struct {
	PrivateDinnerDescription string `json:"privateDinnerDescription"`
	CookingClassDescription  string `json:"cookingClassDescription"`
	CateringDescription      string `json:"cateringDescription"`
	ConsultationDescription  string `json:"consultationDescription"`
}

type SocialMedia struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
}

// Defaults returns the document readers see before anything was saved.
func Defaults() SiteSettings {
	return SiteSettings{}
}

// Section names one tab of the admin editor.
type Section string

const (
	SectionGeneral  Section = "general"
	SectionAbout    Section = "about"
	SectionContact  Section = "contact"
	SectionServices Section = "services"
	SectionFooter   Section = "footer"
	SectionSocial   Section = "social"
)

var ErrUnknownSection = errors.New("unknown settings section")

// Sections lists the editor tabs in display order.
func Sections() []Section {
	return []Section{
		SectionGeneral, SectionAbout, SectionContact,
		SectionServices, SectionFooter, SectionSocial,
	}
}

// ParseSection maps a tab name to a Section.
func ParseSection(name string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Sections() {
		if s == known {
			return s, nil
		}
	}
	return "", ErrUnknownSection
}

// field describes one string leaf of the document by its dotted JSON path.
type field struct {
	key     string
	section Section
	url     bool
	ref     func(*SiteSettings) *string
}

var fields = []field{
	{"title", SectionGeneral, false, func(s *SiteSettings) *string { return &s.Title }},
	{"heroImage", SectionGeneral, true, func(s *SiteSettings) *string { return &s.HeroImage }},
	{"signUpInstructions", SectionGeneral, false, func(s *SiteSettings) *string { return &s.SignUpInstructions }},
	{"aboutTitle", SectionAbout, false, func(s *SiteSettings) *string { return &s.AboutTitle }},
	{"aboutContent", SectionAbout, false, func(s *SiteSettings) *string { return &s.AboutContent }},
	{"aboutImage", SectionAbout, true, func(s *SiteSettings) *string { return &s.AboutImage }},
	{"contactTitle", SectionContact, false, func(s *SiteSettings) *string { return &s.ContactTitle }},
	{"contactSubtitle", SectionContact, false, func(s *SiteSettings) *string { return &s.ContactSubtitle }},
	{"services.privateDinnerDescription", SectionServices, false, func(s *SiteSettings) *string { return &s.Services.PrivateDinnerDescription }},
	{"services.cookingClassDescription", SectionServices, false, func(s *SiteSettings) *string { return &s.Services.CookingClassDescription }},
	{"services.cateringDescription", SectionServices, false, func(s *SiteSettings) *string { return &s.Services.CateringDescription }},
	{"services.consultationDescription", SectionServices, false, func(s *SiteSettings) *string { return &s.Services.ConsultationDescription }},
	{"footerText", SectionFooter, false, func(s *SiteSettings) *string { return &s.FooterText }},
	{"socialMedia.instagram", SectionSocial, true, func(s *SiteSettings) *string { return &s.SocialMedia.Instagram }},
	{"socialMedia.facebook", SectionSocial, true, func(s *SiteSettings) *string { return &s.SocialMedia.Facebook }},
	{"socialMedia.twitter", SectionSocial, true, func(s *SiteSettings) *string { return &s.SocialMedia.Twitter }},
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// Keys returns the dotted paths of every leaf, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.key)
	}
	sort.Strings(keys)
	return keys
}

// SectionKeys returns the dotted paths edited by one tab, in display order.
func SectionKeys(section Section) []string {
	var keys []string
	for _, f := range fields {
		if f.section == section {
			keys = append(keys, f.key)
		}
	}
	return keys
}

// Value returns the leaf at a dotted path.
func (s SiteSettings) Value(key string) (string, bool) {
	f, ok := fieldsByKey[key]
	if !ok {
		return "", false
	}
	return *f.ref(&s), true
}
