package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/config"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/item"
	itemrepo "github.com/ovaphlow/pitchfork/service-crud-api/internal/item/repo"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/notify"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-crud-api/internal/user/repo"
)

// API is the assembled HTTP surface.
type API struct {
	Handler http.Handler
	users   *user.UserService
}

// Wait blocks until background work started by requests has finished.
func (a *API) Wait() { a.users.Wait() }

// New wires repositories, services and handlers over db and mounts them.
func New(db *sqlx.DB, cfg *config.Config, logger *zap.SugaredLogger) (*API, error) {
	tokens, err := auth.NewTokenService(cfg.Token)
	if err != nil {
		return nil, err
	}
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}

	items := item.NewItemService(itemrepo.NewItemRepo(db))
	users := user.NewUserService(
		userrepo.NewUserRepo(db, hasher, logger),
		tokens,
		notify.New(cfg.Notify, logger),
		logger,
	)

	h := RegisterRoutes(Routes{
		Logger:      logger,
		Users:       user.NewHandler(users, items, logger),
		Items:       item.NewHandler(items, logger),
		Resolver:    users,
		CORSOrigins: cfg.CORSOrigins,
	})
	return &API{Handler: h, users: users}, nil
}

type Routes struct {
	Logger      *zap.SugaredLogger
	Users       *user.Handler
	Items       *item.Handler
	Resolver    auth.UserResolver
	CORSOrigins []string
}

// RegisterRoutes mounts the handlers on a chi router.
// Routes tagged admin only require a valid token; there is no role model.
func RegisterRoutes(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(rt.Logger))
	r.Use(SecurityHeadersMiddleware())
	if len(rt.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public
	r.Post("/token", rt.Users.Token)
	r.Post("/users", rt.Users.Create)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(rt.Resolver))

		r.Get("/users/me", rt.Users.Me)
		r.Put("/users", rt.Users.Update)
		r.Get("/users/me/items", rt.Items.ListMine)
		r.Post("/users/{id}/items", rt.Items.CreateForUser)

		// admin
		r.Get("/users", rt.Users.List)
		r.Get("/users/{id}", rt.Users.Get)
		r.Delete("/users/{id}", rt.Users.Delete)
		r.Get("/items", rt.Items.List)
	})

	return r
}
