// internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chefsite/internal/database"
	"chefsite/internal/instagram"
	"chefsite/internal/rss"
	"chefsite/internal/settings"

	"github.com/sirupsen/logrus"
)

const (
	defaultAboutTitle   = "About Chef Margaret Alvis"
	defaultContactTitle = "Contact Chef Margaret"
	upcomingLimit       = 6
)

type homeView struct {
	Hero       string
	SignUp     []string
	Events     []database.Event
	Services   []serviceView
	Subscribed bool
	Form       signupForm
}

type signupForm struct {
	FullName string
	Email    string
	Address  string
}

func (s *Server) upcoming(ctx context.Context) []database.Event {
	today := s.now().UTC().Truncate(24 * time.Hour)
	events, err := s.db.UpcomingEvents(ctx, today, upcomingLimit)
	if err != nil {
		s.logger.WithError(err).Error("error loading upcoming events")
		return nil
	}
	return events
}

func (s *Server) homePage(w http.ResponseWriter, r *http.Request) (pageData, *homeView) {
	pd := s.page(w, r, "")
	view := &homeView{
		Hero:     settings.ImageOr(pd.Site.HeroImage, settings.Placeholder),
		SignUp:   settings.Paragraphs(pd.Site.SignUpInstructions),
		Events:   s.upcoming(r.Context()),
		Services: servicesOf(pd.Site),
	}
	pd.Active = "home"
	pd.Data = view
	return pd, view
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	pd, view := s.homePage(w, r)
	view.Subscribed = r.URL.Query().Get("subscribed") == "1"
	s.render(w, r, http.StatusOK, "home.html", pd)
}

// handleSignup adds a newsletter subscriber. Signing up twice is not an
// error for the visitor.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	form := signupForm{
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Address:  strings.TrimSpace(r.PostFormValue("address")),
	}

	email, ok := normalizeEmail(form.Email)
	if form.FullName == "" || !ok {
		pd, view := s.homePage(w, r)
		view.Form = form
		pd.Error = "Please enter your name and a valid email address."
		s.render(w, r, http.StatusBadRequest, "home.html", pd)
		return
	}

	sub, err := s.db.CreateSubscriber(r.Context(), form.FullName, email, form.Address)
	switch {
	case errors.Is(err, database.ErrDuplicate):
		s.logger.WithField("email", email).Info("signup for existing subscriber")
	case err != nil:
		s.logger.WithError(err).Error("error creating subscriber")
		pd, view := s.homePage(w, r)
		view.Form = form
		pd.Error = "We could not sign you up right now. Please try again."
		s.render(w, r, http.StatusInternalServerError, "home.html", pd)
		return
	default:
		subscribersRegistered.Add(1)
		s.logger.WithField("subscriber", sub.ID).Info("new subscriber")
	}

	http.Redirect(w, r, "/?subscribed=1#signup", http.StatusSeeOther)
}

type aboutView struct {
	Heading    string
	Image      string
	Paragraphs []string
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "")
	heading := pd.Site.AboutTitle
	if heading == "" {
		heading = defaultAboutTitle
	}
	pd.Title = heading
	pd.Active = "about"
	pd.Data = aboutView{
		Heading:    heading,
		Image:      settings.ImageOr(pd.Site.AboutImage, settings.Placeholder),
		Paragraphs: settings.Paragraphs(pd.Site.AboutContent),
	}
	s.render(w, r, http.StatusOK, "about.html", pd)
}

type servicesView struct {
	Services []serviceView
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Our Services")
	pd.Active = "services"
	pd.Data = servicesView{Services: servicesOf(pd.Site)}
	s.render(w, r, http.StatusOK, "services.html", pd)
}

type instagramView struct {
	Posts   []instagram.Post
	Profile string
}

func (s *Server) handleInstagram(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Instagram")
	pd.Active = "instagram"

	var posts []instagram.Post
	if s.instagram != nil {
		posts = s.instagram.Posts(r.Context())
	} else {
		posts = instagram.Placeholders()
	}
	pd.Data = instagramView{Posts: posts, Profile: pd.Site.SocialMedia.Instagram}
	s.render(w, r, http.StatusOK, "instagram.html", pd)
}

func (s *Server) handleGiftCertificates(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Gift Certificates")
	pd.Active = "gift-certificates"
	pd.Data = []int{100, 250, 500}
	s.render(w, r, http.StatusOK, "gift-certificates.html", pd)
}

func (s *Server) handleEventsFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site := s.settings.Get(ctx)

	var items []rss.Event
	for _, ev := range s.upcoming(ctx) {
		items = append(items, rss.Event{
			ID:          ev.ID,
			Date:        ev.Date,
			Description: ev.Description,
			ImageURL:    ev.ImageURL,
			CreatedAt:   ev.CreatedAt,
		})
	}

	feed := rss.EventsFeed(site.Title, s.config.SiteURL, items, s.now())
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if err := feed.Write(w); err != nil {
		s.logger.WithError(err).Error("error writing events feed")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Contact and booking

type contactForm struct {
	Kind        string
	Name        string
	Email       string
	Message     string
	Date        string
	Guests      string
	ServiceType string
}

type contactView struct {
	Heading  string
	Subtitle string
	Form     contactForm
	Errors   map[string]string
	Sent     string
	Services []serviceView
}

func (s *Server) contactPage(w http.ResponseWriter, r *http.Request, form contactForm, errs map[string]string) pageData {
	pd := s.page(w, r, "")
	heading := pd.Site.ContactTitle
	if heading == "" {
		heading = defaultContactTitle
	}
	if form.Kind == "" {
		form.Kind = database.InquiryGeneral
	}
	pd.Title = heading
	pd.Active = "contact"
	pd.Data = contactView{
		Heading:  heading,
		Subtitle: pd.Site.ContactSubtitle,
		Form:     form,
		Errors:   errs,
		Services: servicesOf(pd.Site),
	}
	return pd
}

func (s *Server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	pd := s.contactPage(w, r, contactForm{Kind: r.URL.Query().Get("type")}, nil)
	view := pd.Data.(contactView)
	switch r.URL.Query().Get("sent") {
	case database.InquiryGeneral:
		view.Sent = "Thanks for your message. Chef Margaret will be in touch soon."
	case database.InquiryBooking:
		view.Sent = "Thanks for your booking request. We will confirm availability by email."
	}
	pd.Data = view
	s.render(w, r, http.StatusOK, "contact.html", pd)
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	form := contactForm{
		Kind:        strings.TrimSpace(r.PostFormValue("kind")),
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Message:     strings.TrimSpace(r.PostFormValue("message")),
		Date:        strings.TrimSpace(r.PostFormValue("date")),
		Guests:      strings.TrimSpace(r.PostFormValue("guests")),
		ServiceType: strings.TrimSpace(r.PostFormValue("serviceType")),
	}

	inquiry, errs := form.validate()
	if len(errs) > 0 {
		pd := s.contactPage(w, r, form, errs)
		pd.Error = "Please correct the highlighted fields."
		s.render(w, r, http.StatusBadRequest, "contact.html", pd)
		return
	}

	id, err := s.db.CreateInquiry(r.Context(), inquiry)
	if err != nil {
		s.logger.WithError(err).Error("error saving inquiry")
		pd := s.contactPage(w, r, form, nil)
		pd.Error = "Your message could not be sent right now. Please try again."
		s.render(w, r, http.StatusInternalServerError, "contact.html", pd)
		return
	}

	inquiriesReceived.Add(inquiry.Kind, 1)
	s.logger.WithFields(logrus.Fields{
		"inquiry": id,
		"kind":    inquiry.Kind,
		"email":   inquiry.Email,
		"service": inquiry.ServiceType,
	}).Info("contact form submitted")

	http.Redirect(w, r, "/contact?sent="+inquiry.Kind, http.StatusSeeOther)
}

func (f contactForm) validate() (database.Inquiry, map[string]string) {
	errs := map[string]string{}
	in := database.Inquiry{
		Kind:    f.Kind,
		Name:    f.Name,
		Message: f.Message,
	}

	if f.Kind != database.InquiryGeneral && f.Kind != database.InquiryBooking {
		errs["kind"] = "Choose a general inquiry or a booking."
	}
	if f.Name == "" {
		errs["name"] = "Name is required."
	}
	if email, ok := normalizeEmail(f.Email); ok {
		in.Email = email
	} else {
		errs["email"] = "A valid email address is required."
	}

	if f.Kind == database.InquiryGeneral && f.Message == "" {
		errs["message"] = "Message is required."
	}

	if f.Kind == database.InquiryBooking {
		if _, err := time.Parse(database.DateLayout, f.Date); err != nil {
			errs["date"] = "Choose a preferred date."
		} else {
			in.EventDate = f.Date
		}
		if n, err := strconv.Atoi(f.Guests); err != nil || n < 1 {
			errs["guests"] = "Number of guests must be at least 1."
		} else {
			in.Guests = n
		}
		if !validService(f.ServiceType) {
			errs["serviceType"] = "Select a service."
		} else {
			in.ServiceType = f.ServiceType
		}
	}
	return in, errs
}
