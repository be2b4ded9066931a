package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/Aerovity/riglii-backend/internal/config"
	"github.com/Aerovity/riglii-backend/internal/db"
	"github.com/Aerovity/riglii-backend/internal/handlers"
	"github.com/Aerovity/riglii-backend/internal/middleware"
	"github.com/Aerovity/riglii-backend/internal/models"
	"github.com/Aerovity/riglii-backend/internal/realtime"
	"github.com/Aerovity/riglii-backend/internal/services/lifecycle"
	"github.com/Aerovity/riglii-backend/internal/services/mailer"
	"github.com/Aerovity/riglii-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.Conversation{},
		&models.Message{},
		&models.Form{},
		&models.Review{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis unreachable, realtime hints disabled:", err)
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	store := storage.New(cfg.UploadDir, cfg.AppBaseURL)
	mail := mailer.New(cfg.MailAPIKey, cfg.MailFrom)

	svc := lifecycle.NewService(gdb, hub, rdb, mail)

	chatH := handlers.NewChatHandler(svc, store, hub)
	formH := handlers.NewFormHandler(svc, store)
	reviewH := handlers.NewReviewHandler(svc)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 30 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/freelancers/:id/reviews", reviewH.GetFreelancerReviews)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.Preload("FreelancerProfile").First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":      user.ID,
				"name":    user.Name,
				"email":   user.Email,
				"role":    user.Role,
				"profile": user.FreelancerProfile,
			},
		})
	})

	chat := protected.Group("/chat")

	chat.Post("/conversations", chatH.CreateOrGetConversation)
	chat.Get("/conversations", chatH.GetConversations)
	chat.Get("/unread", chatH.GetUnreadTotal)
	chat.Get("/conversations/:id/messages", chatH.GetMessages)
	chat.Post("/conversations/:id/messages", chatH.SendMessage)
	chat.Patch("/conversations/:id/read", chatH.MarkAsRead)

	// forms ride the conversation for create/list, then stand alone
	chat.Post("/conversations/:id/forms",
		middleware.RequireRoles("freelancer"),
		formH.CreateForm,
	)
	chat.Get("/conversations/:id/forms", formH.ListForms)

	protected.Get("/forms/:id", formH.GetForm)
	protected.Patch("/forms/:id/accept", formH.AcceptForm)
	protected.Patch("/forms/:id/refuse", formH.RefuseForm)
	protected.Post("/forms/:id/delivery",
		middleware.RequireRoles("freelancer"),
		formH.SubmitDelivery,
	)
	protected.Get("/forms/:id/files/:index", formH.DownloadDeliveryFile)
	protected.Post("/forms/:id/review",
		middleware.RequireRoles("client"),
		reviewH.SubmitReview,
	)

	// WebSocket endpoint (no JWT middleware, auth via query param)
	app.Get("/ws/chat", websocket.New(chatH.WebSocketHandler))

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = cfg.AppPort
	}
	log.Fatal(app.Listen(":" + port))
}
