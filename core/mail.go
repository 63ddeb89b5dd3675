package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*
var templatesFS embed.FS

var (
	textTemplates = make(map[string]*texttmpl.Template)
	htmlTemplates = make(map[string]*htmltmpl.Template)
	tmplMu        sync.Mutex
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	txt, html, err := getTemplates(m.TemplateName)
	if err != nil {
		return err
	}
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}

	var buff bytes.Buffer
	if m.BodyStr == "" {
		if err := txt.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrap(err, "rendering text template")
		}
		m.TextContent = buff.String()
		buff.Reset()
	}
	if err := html.ExecuteTemplate(&buff, "base", data); err != nil {
		return errors.Wrap(err, "rendering html template")
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func getTemplates(name string) (*texttmpl.Template, *htmltmpl.Template, error) {
	tmplMu.Lock()
	defer tmplMu.Unlock()

	if txt, ok := textTemplates[name]; ok {
		return txt, htmlTemplates[name], nil
	}

	dir := "templates/email/"
	txt, err := texttmpl.ParseFS(templatesFS, dir+"_base.txt", dir+name+".txt")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s.txt", name)
	}
	html, err := htmltmpl.ParseFS(templatesFS, dir+"_base.gohtml", dir+name+".gohtml")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s.gohtml", name)
	}
	txt = txt.Option("missingkey=error")
	html = html.Option("missingkey=error")

	textTemplates[name] = txt
	htmlTemplates[name] = html
	return txt, html, nil
}
