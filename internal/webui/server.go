// Package webui serves the browser front end: a multi-model chat comparison,
// a news search with optional summaries, and an image generator whose results
// are kept in memory for download.
package webui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/fanout"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/tasks/imagegen"
	"github.com/leofalp/aitasks/internal/tasks/newsdigest"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/replicate"
	"github.com/leofalp/aitasks/providers/tool/serper"
	"github.com/samber/lo"
)

//go:embed templates/*.html
var templateFS embed.FS

// AspectRatios are the ratios offered by the image form.
var AspectRatios = []string{"1:1", "16:9", "3:2", "9:16", "4:5"}

// NewsPeriods are the periods offered by the news form.
var NewsPeriods = []string{"today", "week", "month", "year"}

const (
	imageName      = "generated.png"
	generateTimeout = 2 * time.Minute
	newsTimeout     = 3 * time.Minute
)

// Server routes the pages. It is an http.Handler.
type Server struct {
	env    *cli.Env
	roster config.Roster
	images *artifact.MemorySink
	pages  *template.Template
	router *mux.Router
}

// NewServer builds the routes. Generated images are stored in images.
func NewServer(env *cli.Env, roster config.Roster, images *artifact.MemorySink) (*Server, error) {
	pages, err := template.New("pages").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		env:    env,
		roster: roster.Enabled(),
		images: images,
		pages:  pages,
		router: mux.NewRouter(),
	}
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/", s.index).Methods(http.MethodGet)
	s.router.HandleFunc("/chat", s.chatForm).Methods(http.MethodGet)
	s.router.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	s.router.HandleFunc("/images", s.imageForm).Methods(http.MethodGet)
	s.router.HandleFunc("/images", s.generateImage).Methods(http.MethodPost)
	s.router.HandleFunc("/images/{id}", s.image).Methods(http.MethodGet)
	s.router.HandleFunc("/news", s.newsForm).Methods(http.MethodGet)
	s.router.HandleFunc("/news", s.news).Methods(http.MethodPost)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.env.Logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf strings.Builder
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.env.Logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

type indexPage struct {
	Title   string
	Warning string
	Model   string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", indexPage{Title: "AI Tasks", Model: replicate.DefaultModel})
}

type modelChoice struct {
	Name     string
	Selected bool
}

type chatPage struct {
	Title   string
	Warning string
	Message string
	Models  []modelChoice
	Slots   []fanout.Slot
}

func (s *Server) chatPage(message string, selected []string) chatPage {
	return chatPage{
		Title:   "Multi-LLM Chat",
		Message: message,
		Models: lo.Map(s.roster.Models, func(m config.RosterEntry, _ int) modelChoice {
			return modelChoice{Name: m.Name, Selected: selected == nil || lo.Contains(selected, m.Name)}
		}),
	}
}

func (s *Server) chatForm(w http.ResponseWriter, r *http.Request) {
	page := s.chatPage("", nil)
	if err := s.env.Config.Require(s.roster.Providers()...); err != nil {
		page.Warning = "Please set all API keys to use the chat: " + err.Error()
	}
	s.render(w, "chat", page)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(r.PostForm.Get("message"))
	selected := r.PostForm["model"]
	if selected == nil {
		selected = []string{}
	}
	page := s.chatPage(message, selected)

	switch {
	case message == "":
		page.Warning = "Please enter a message."
		s.render(w, "chat", page)
		return
	case len(selected) == 0:
		page.Warning = "Please select at least one model."
		s.render(w, "chat", page)
		return
	}

	roster, err := s.roster.Select(selected)
	if err != nil {
		page.Warning = err.Error()
		s.render(w, "chat", page)
		return
	}
	targets, err := s.env.Factory.Targets(roster)
	if err != nil {
		page.Warning = "Please set all API keys to use the chat: " + err.Error()
		s.render(w, "chat", page)
		return
	}

	page.Slots, err = fanout.Run(r.Context(), message, targets, fanout.WithLogger(s.env.Logger))
	if err != nil {
		page.Warning = err.Error()
	}
	s.render(w, "chat", page)
}

type imagesPage struct {
	Title        string
	Warning      string
	Error        string
	AspectRatios []string
	Params       imagegen.Params
	Images       []string
}

func (s *Server) imagesPage(params imagegen.Params) imagesPage {
	return imagesPage{Title: "Image Generator", AspectRatios: AspectRatios, Params: params}
}

// FormParams are the generation settings of the image form. Only prompt,
// negative prompt and aspect ratio are user-facing.
func FormParams(prompt, negative, aspect string) imagegen.Params {
	params := imagegen.DefaultParams()
	params.Prompt = strings.TrimSpace(prompt)
	params.NegativePrompt = strings.TrimSpace(negative)
	params.AspectRatio = aspect
	params.Format = "png"
	return params
}

func (s *Server) imageForm(w http.ResponseWriter, r *http.Request) {
	page := s.imagesPage(FormParams("", "", AspectRatios[0]))
	if err := s.env.Config.Require(config.Replicate); err != nil {
		page.Warning = "Replicate API token is missing! " + err.Error()
	}
	s.render(w, "images", page)
}

func (s *Server) generateImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := FormParams(r.PostForm.Get("prompt"), r.PostForm.Get("negative_prompt"), r.PostForm.Get("aspect_ratio"))
	page := s.imagesPage(params)

	if err := s.env.Config.Require(config.Replicate); err != nil {
		page.Warning = "Replicate API token is missing! " + err.Error()
		s.render(w, "images", page)
		return
	}
	if utils.IsBlank(params.Prompt) {
		page.Warning = "Please enter a prompt."
		s.render(w, "images", page)
		return
	}
	if !lo.Contains(AspectRatios, params.AspectRatio) {
		page.Warning = ai.NewValidationError("aspect_ratio", "%q is not one of %s", params.AspectRatio, strings.Join(AspectRatios, ", ")).Error()
		s.render(w, "images", page)
		return
	}

	ids, err := s.generate(r.Context(), params)
	if err != nil {
		s.env.Logger.Warn("image generation failed", "error", err)
		page.Error = err.Error()
	}
	page.Images = ids
	s.render(w, "images", page)
}

// generate runs the model and stores every output in the memory sink.
func (s *Server) generate(ctx context.Context, params imagegen.Params) ([]string, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := client.GenerateImage(ctx, s.env.Factory.Replicate(), params.Request(replicate.DefaultModel))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, url := range resp.URLs() {
		id, err := artifact.Save(ctx, s.env.Factory.HTTPClient(), s.images, url, imageName)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := s.images.Get(id)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	case errors.Is(err, artifact.ErrExpired):
		http.Error(w, "Image expired", http.StatusGone)
		return
	case err != nil:
		s.env.Logger.Error("failed to retrieve image", "id", id, "error", err)
		http.Error(w, "Failed to retrieve image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", utils.FirstNonEmpty(entry.ContentType, "image/png"))
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name))
	}
	_, _ = w.Write(entry.Data)
}

type newsParams struct {
	Term      string
	Period    string
	Num       string
	Summarize bool
}

type newsPage struct {
	Title   string
	Warning string
	Error   string
	Periods []string
	Form    newsParams
	Digest  *newsdigest.Digest
}

func (s *Server) newsPage(form newsParams) newsPage {
	return newsPage{Title: "News Search", Periods: NewsPeriods, Form: form}
}

// Query validates the form the way the newsdigest flags are validated.
func (f newsParams) Query() (newsdigest.Query, error) {
	period, err := serper.ParsePeriod(f.Period)
	if err != nil {
		return newsdigest.Query{}, err
	}
	num, err := strconv.Atoi(strings.TrimSpace(f.Num))
	if err != nil || num < serper.MinResults || num > serper.MaxResults {
		return newsdigest.Query{}, ai.NewValidationError("num", "%q is not a number in [%d, %d]", f.Num, serper.MinResults, serper.MaxResults)
	}
	return newsdigest.Query{
		Term:      utils.FirstNonEmpty(strings.TrimSpace(f.Term), newsdigest.DefaultTerm),
		Period:    period,
		Num:       num,
		Summarize: f.Summarize,
	}, nil
}

func (s *Server) newsForm(w http.ResponseWriter, r *http.Request) {
	page := s.newsPage(newsParams{Term: newsdigest.DefaultTerm, Period: NewsPeriods[0], Num: strconv.Itoa(newsdigest.DefaultResults)})
	if err := s.env.Config.Require(config.Serper); err != nil {
		page.Warning = "Please set the API key to search news: " + err.Error()
	}
	s.render(w, "news", page)
}

func (s *Server) news(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := newsParams{
		Term:      r.PostForm.Get("term"),
		Period:    r.PostForm.Get("period"),
		Num:       r.PostForm.Get("num"),
		Summarize: r.PostForm.Get("summarize") != "",
	}
	page := s.newsPage(form)

	query, err := form.Query()
	if err != nil {
		page.Warning = err.Error()
		s.render(w, "news", page)
		return
	}
	if err := s.env.Config.Require(query.Providers()...); err != nil {
		page.Warning = "Please set the API key to search news: " + err.Error()
		s.render(w, "news", page)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), newsTimeout)
	defer cancel()
	digest, err := newsdigest.Search(ctx, s.env, query, nil)
	if err != nil {
		s.env.Logger.Warn("news search failed", "error", err)
		page.Error = err.Error()
	} else {
		page.Digest = &digest
	}
	s.render(w, "news", page)
}
