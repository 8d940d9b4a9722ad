package main

import (
	"io"
	"net/http"
	"os"
	"path"
	"regexp"
	"tourbook/src/config"
	"tourbook/src/lib"
	"tourbook/src/middlewares"
	"tourbook/src/services"
	"tourbook/src/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	apiPrefix string = "/api/v1"
)

var bookingStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.BookingStatus(fl.Field().String()).Valid()
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookingstatus", bookingStatusValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middlewares.SecureHeaders, middlewares.Maintenance, middlewares.ErrorHandler)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func corsMiddleware() gin.HandlerFunc {
	if config.Env() == string(types.Local) {
		return cors.Default()
	}
	appHost := config.AppHost()
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		if appHost == "" {
			return false
		}
		match, _ := regexp.MatchString(appHost, origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

// newServer builds the engine with every route wired to svc.
func newServer(svc *services.BookingService) *gin.Engine {
	registerValidators()
	router := setupRouter()
	router.Use(corsMiddleware())

	stripeWebhookRoute(router, svc)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	bookingHandlers(authorized, svc)
	paymentHandlers(authorized, svc)
	staffHandlers(authorized, svc)

	return router
}

func respond(ctx *gin.Context, status int, message string, data any) {
	ctx.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func initLogger() {
	dir := config.LogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		lib.GetLogger().Warnf("could not create log dir %s: %s", dir, err.Error())
		return
	}
	lib.InitFileLogger(dir)

	f, err := os.OpenFile(path.Join(dir, "api.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		lib.GetLogger().Warnf("could not open api.log: %s", err.Error())
		return
	}
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
