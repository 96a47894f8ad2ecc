// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	governancefeature "github.com/dalemusser/hackhub/internal/app/features/governance"
	healthfeature "github.com/dalemusser/hackhub/internal/app/features/health"
	intakefeature "github.com/dalemusser/hackhub/internal/app/features/intake"
	invitesfeature "github.com/dalemusser/hackhub/internal/app/features/invites"
	joinrequestsfeature "github.com/dalemusser/hackhub/internal/app/features/joinrequests"
	loginfeature "github.com/dalemusser/hackhub/internal/app/features/login"
	notificationsfeature "github.com/dalemusser/hackhub/internal/app/features/notifications"
	teamsfeature "github.com/dalemusser/hackhub/internal/app/features/teams"
	institutestore "github.com/dalemusser/hackhub/internal/app/store/institutes"
	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	joinrequeststore "github.com/dalemusser/hackhub/internal/app/store/joinrequests"
	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	governanceflow "github.com/dalemusser/hackhub/internal/app/workflow/governance"
	inviteflow "github.com/dalemusser/hackhub/internal/app/workflow/invites"
	joinflow "github.com/dalemusser/hackhub/internal/app/workflow/joinreqs"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. HackHub builds its stores and workflow
// services here, applies the bearer-token middleware globally, and mounts
// one feature router per surface.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewManager(appCfg.TokenKey, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	teams := teamstore.New(db)
	pending := pendingstore.New(db)
	institutes := institutestore.New(db)
	invites := invitestore.New(db)
	joinRequests := joinrequeststore.New(db)
	notifications := notificationstore.New(db)

	issuer := credentials.New(appCfg.BcryptCost)
	sink := notify.NewSink(notifications)

	var sender mailer.Sender = mailer.LogSender{}
	if appCfg.MailEnabled {
		from := appCfg.MailFrom
		if appCfg.MailFromName != "" {
			from = fmt.Sprintf("%s <%s>", appCfg.MailFromName, appCfg.MailFrom)
		}
		sender = mailer.NewSMTPSender(appCfg.MailSMTPHost, appCfg.MailSMTPPort, appCfg.MailSMTPUser, appCfg.MailSMTPPass, from)
	}

	governanceSvc := governanceflow.NewService(pending, users, teams, institutes, issuer, sink, sender, appCfg.SiteName, appCfg.LoginURL)
	inviteSvc := inviteflow.NewService(invites, users, teams, sink)
	joinSvc := joinflow.NewService(joinRequests, users, teams, sink)

	r := chi.NewRouter()

	// Global auth middleware: verifies the bearer token when present and
	// injects the identity. Role gates live on the feature routers.
	r.Use(tokens.LoadIdentity)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Public surfaces
	intakeHandler := intakefeature.NewHandler(pending, users, teams, institutes, issuer, sender, appCfg.SiteName, logger)
	r.Mount("/register", intakefeature.Routes(intakeHandler))

	loginHandler := loginfeature.NewHandler(users, issuer, tokens, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	// Student surfaces
	teamsHandler := teamsfeature.NewHandler(teams, users, sink, logger)
	r.Mount("/teams", teamsfeature.Routes(teamsHandler))

	invitesHandler := invitesfeature.NewHandler(inviteSvc, invites, teams, logger)
	r.Mount("/invites", invitesfeature.Routes(invitesHandler))

	joinHandler := joinrequestsfeature.NewHandler(joinSvc, joinRequests, teams, logger)
	r.Mount("/join-requests", joinrequestsfeature.Routes(joinHandler))

	// Review surface (SPOC + admin)
	governanceHandler := governancefeature.NewHandler(governanceSvc, pending, users, teams, invites, logger)
	r.Mount("/governance", governancefeature.Routes(governanceHandler))

	// Everyone signed in
	notificationsHandler := notificationsfeature.NewHandler(notifications)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))

	return r, nil
}
