package router

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/andymarkow/hostmart/internal/approval"
	"github.com/andymarkow/hostmart/internal/auth"
	"github.com/andymarkow/hostmart/internal/catalog/catclient"
	"github.com/andymarkow/hostmart/internal/deposit"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/errmsg"
	"github.com/andymarkow/hostmart/internal/order"
	"github.com/andymarkow/hostmart/internal/server/handlers"
	"github.com/andymarkow/hostmart/internal/storage"
)

type Options struct {
	log        *slog.Logger
	secret     []byte
	depositSvc *deposit.Service
	orderSvc   *order.Service
	gateway    *approval.Gateway
}

func NewRouter(store storage.Storage, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		secret: []byte(""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	if rOpts.depositSvc == nil {
		rOpts.depositSvc = deposit.New(store, deposit.WithLogger(rOpts.log))
	}

	if rOpts.orderSvc == nil {
		rOpts.orderSvc = order.New(store, catclient.New(), order.WithLogger(rOpts.log))
	}

	if rOpts.gateway == nil {
		rOpts.gateway = approval.New(store, approval.WithLogger(rOpts.log))
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	h := handlers.NewHandlers(store,
		rOpts.depositSvc,
		rOpts.orderSvc,
		rOpts.gateway,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.UserRegister)
		r.Post("/api/user/login", h.UserLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/user/wallet/balance", h.GetWalletBalance)
		r.Get("/api/user/wallet/history", h.GetWalletHistory)
		r.Post("/api/user/deposits", h.CreateDeposit)
		r.Get("/api/user/deposits", h.GetUserDeposits)
		r.Post("/api/user/deposits/{depositID}/proof", h.AttachDepositProof)
		r.Post("/api/user/orders", h.CreateOrder)
		r.Get("/api/user/orders", h.GetUserOrders)
		r.Post("/api/user/orders/{orderID}/proof", h.AttachOrderProof)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			adminOnly,
		)

		r.Get("/api/admin/deposits", h.AdminListDeposits)
		r.Put("/api/admin/deposits", h.AdminDecideDeposit)
		r.Get("/api/admin/orders", h.AdminListOrders)
		r.Put("/api/admin/orders", h.AdminDecideOrder)
		r.Post("/api/admin/orders/{orderID}/cancel", h.AdminCancelOrder)
		r.Post("/api/admin/adjustments", h.AdminCreateAdjustment)
	})

	return r
}

// adminOnly gates the route group on the role claim carried by the JWT.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		roleClaim, _ := claims["role"].(string)

		role, err := users.ParseRole(roleClaim)
		if err != nil || !role.Admin() {
			http.Error(w, errmsg.ErrAdminRoleRequired.Error(), errmsg.ErrAdminRoleRequired.Code)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

func WithDepositService(svc *deposit.Service) Option {
	return func(o *Options) {
		o.depositSvc = svc
	}
}

func WithOrderService(svc *order.Service) Option {
	return func(o *Options) {
		o.orderSvc = svc
	}
}

func WithGateway(gw *approval.Gateway) Option {
	return func(o *Options) {
		o.gateway = gw
	}
}
