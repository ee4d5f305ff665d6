package router

import "github.com/gin-gonic/gin"

// authRoutes defines the authentication and session lifecycle routes
func (r *Router) authRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/verify-otp", r.authHandler.VerifyOTP)
		auth.POST("/resend-otp", r.authHandler.ResendOTP)
		auth.POST("/forgot-password", r.authHandler.ForgotPassword)
		auth.POST("/reset-password", r.authHandler.ResetPassword)
		auth.POST("/google-oauth", r.authHandler.GoogleOAuth)
		auth.POST("/refresh", r.authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
			protected.GET("/me", r.authHandler.Me)
		}
	}
}
