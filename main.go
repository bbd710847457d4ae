package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bankdesk/config"
	"bankdesk/controllers"
	"bankdesk/database"
	"bankdesk/middleware"
	"bankdesk/services"
	"bankdesk/utils"

	"github.com/gorilla/mux"
)

// newRouter собирает маршруты приложения
func newRouter(accountController *controllers.AccountController) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.LoggingMiddleware)

	accountController.RegisterRoutes(router)
	return router
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Приложение завершилось с ошибкой: %v", err)
	}
}

// run держит все ресурсы приложения; отложенные закрытия выполняются
// до того, как main завершит процесс.
func run(cfg *config.Config) error {
	logCloser, err := utils.InitLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("настройка логирования: %w", err)
	}
	defer logCloser.Close()

	// Открываем базу данных; соединение закрывается при выходе
	db, err := database.NewDatabase(cfg)
	if err != nil {
		utils.LogError("Ошибка подключения к базе данных: %v", err)
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.LogError("Ошибка закрытия базы данных: %v", err)
		}
	}()

	accountService := services.NewAccountService(db.GetDB())
	accountController := controllers.NewAccountController(accountService)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(accountController),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		utils.LogInfo("Bank application available at http://%s/", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Работаем, пока окно не закрыто кнопкой Close или сигналом
	select {
	case <-ctx.Done():
	case <-accountController.Done():
	case err := <-serverErr:
		if err != nil {
			utils.LogError("Ошибка запуска сервера: %v", err)
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Ошибка остановки сервера: %v", err)
	}
	utils.LogInfo("Приложение остановлено")
	return nil
}
