package controllers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"bankdesk/services"
	"bankdesk/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// AccountController обрабатывает действия формы и JSON API
type AccountController struct {
	accountService *services.AccountService
	validator      *validator.Validate

	quitOnce sync.Once
	quit     chan struct{}
}

// NewAccountController создает новый экземпляр AccountController
func NewAccountController(accountService *services.AccountService) *AccountController {
	return &AccountController{
		accountService: accountService,
		validator:      validator.New(),
		quit:           make(chan struct{}),
	}
}

// Done закрывается, когда пользователь нажал Close
func (c *AccountController) Done() <-chan struct{} {
	return c.quit
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *AccountController) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", c.Form).Methods("GET")
	router.HandleFunc("/accounts", c.DisplayAccounts).Methods("GET")
	router.HandleFunc("/accounts/create", c.formAction(c.createAccount)).Methods("POST")
	router.HandleFunc("/accounts/deposit", c.formAction(c.deposit)).Methods("POST")
	router.HandleFunc("/accounts/withdraw", c.formAction(c.withdraw)).Methods("POST")
	router.HandleFunc("/accounts/transfer", c.formAction(c.transfer)).Methods("POST")
	router.HandleFunc("/quit", c.Quit).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/accounts", c.APICreateAccount).Methods("POST")
	api.HandleFunc("/accounts", c.APIListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{number}", c.APIGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{number}/deposit", c.apiAction(c.deposit)).Methods("POST")
	api.HandleFunc("/accounts/{number}/withdraw", c.apiAction(c.withdraw)).Methods("POST")
	api.HandleFunc("/accounts/{number}/transfer", c.apiAction(c.transfer)).Methods("POST")
	api.HandleFunc("/metrics", c.Metrics).Methods("GET")
}

// Form показывает форму с полями и кнопками действий
func (c *AccountController) Form(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "form.html", nil); err != nil {
		utils.LogError("render form: %v", err)
	}
}

// DisplayAccounts показывает диалог со списком всех счетов
func (c *AccountController) DisplayAccounts(w http.ResponseWriter, r *http.Request) {
	renderDialog(w, c.displayAccounts(r.Context()))
}

// Quit завершает работу приложения, как закрытие окна
func (c *AccountController) Quit(w http.ResponseWriter, r *http.Request) {
	renderDialog(w, Dialog{Title: "Goodbye", Message: "The application has been closed.", Status: http.StatusOK, Final: true})
	c.quitOnce.Do(func() { close(c.quit) })
}

type action func(ctx context.Context, form AccountForm) Dialog

// formAction связывает действие с обработчиком POST-запроса формы
func (c *AccountController) formAction(do action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderDialog(w, failure(http.StatusBadRequest, "Invalid input. "+err.Error()))
			return
		}

		form := AccountForm{
			AccountNumber:     r.PostFormValue("account_number"),
			Amount:            r.PostFormValue("amount"),
			DestinationNumber: r.PostFormValue("destination_number"),
		}
		utils.LogDebug("%s form: account=%q amount=%q destination=%q",
			r.URL.Path, form.AccountNumber, form.Amount, form.DestinationNumber)
		renderDialog(w, do(r.Context(), form))
	}
}

func (c *AccountController) createAccount(ctx context.Context, form AccountForm) Dialog {
	if err := validateFields(c.validator, form, "AccountNumber"); err != nil {
		return failure(http.StatusBadRequest, "Invalid input. Please enter a valid account number.")
	}
	number, err := parseAccountNumber("account number", form.AccountNumber)
	if err != nil {
		return failure(http.StatusBadRequest, "Invalid input. Please enter a valid account number.")
	}

	if _, err := c.accountService.CreateAccount(ctx, services.CreateAccountRequest{Number: number}); err != nil {
		if errors.Is(err, services.ErrAccountExists) {
			return failure(http.StatusConflict, "Account already exists!")
		}
		return invalidInput(err)
	}

	dialog := success("Account created successfully!")
	dialog.Status = http.StatusCreated
	return dialog
}

func (c *AccountController) deposit(ctx context.Context, form AccountForm) Dialog {
	request, err := c.transactionRequest(form)
	if err != nil {
		return invalidInput(err)
	}

	// Пополнение несуществующего счета ничего не меняет, но считается успешным
	if _, err := c.accountService.Deposit(ctx, request); err != nil {
		return invalidInput(err)
	}
	return success("Deposit successful!")
}

func (c *AccountController) withdraw(ctx context.Context, form AccountForm) Dialog {
	request, err := c.transactionRequest(form)
	if err != nil {
		return invalidInput(err)
	}

	_, err = c.accountService.Withdraw(ctx, request)
	switch {
	case err == nil:
		return success("Withdrawal successful!")
	case errors.Is(err, services.ErrInsufficientBalance):
		return failure(http.StatusConflict, "Insufficient balance!")
	case errors.Is(err, services.ErrAccountNotFound):
		return failure(http.StatusNotFound, "Account does not exist!")
	default:
		return invalidInput(err)
	}
}

func (c *AccountController) transfer(ctx context.Context, form AccountForm) Dialog {
	request, err := c.transactionRequest(form)
	if err != nil {
		return invalidInput(err)
	}
	if err := validateFields(c.validator, form, "DestinationNumber"); err != nil {
		return invalidInput(err)
	}
	destination, err := parseAccountNumber("destination account number", form.DestinationNumber)
	if err != nil {
		return invalidInput(err)
	}

	err = c.accountService.Transfer(ctx, services.TransferRequest{
		SourceNumber:      request.Number,
		DestinationNumber: destination,
		Amount:            request.Amount,
	})
	switch {
	case err == nil:
		return success("Transfer successful!")
	case errors.Is(err, services.ErrInsufficientBalance):
		return failure(http.StatusConflict, "Insufficient balance for transfer!")
	case errors.Is(err, services.ErrTargetNotFound):
		return failure(http.StatusNotFound, "Target account does not exist!")
	case errors.Is(err, services.ErrAccountNotFound):
		return failure(http.StatusNotFound, "Account does not exist!")
	default:
		return invalidInput(err)
	}
}

func (c *AccountController) displayAccounts(ctx context.Context) Dialog {
	accounts, err := c.accountService.ListAccounts(ctx)
	if err != nil {
		return invalidInput(err)
	}
	return Dialog{Title: TitleAccounts, Message: formatAccounts(accounts), Status: http.StatusOK}
}

// transactionRequest разбирает номер счета и сумму
func (c *AccountController) transactionRequest(form AccountForm) (services.TransactionRequest, error) {
	if err := validateFields(c.validator, form, "AccountNumber", "Amount"); err != nil {
		return services.TransactionRequest{}, err
	}
	number, err := parseAccountNumber("account number", form.AccountNumber)
	if err != nil {
		return services.TransactionRequest{}, err
	}
	amount, err := parseAmount(form.Amount)
	if err != nil {
		return services.TransactionRequest{}, err
	}
	return services.TransactionRequest{Number: number, Amount: amount}, nil
}

func renderDialog(w http.ResponseWriter, dialog Dialog) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(dialog.Status)
	if err := templates.ExecuteTemplate(w, "dialog.html", dialog); err != nil {
		utils.LogError("render dialog: %v", err)
	}
}

// apiRequest тело JSON-запроса; числа принимаются как в JSON, так и строкой
type apiRequest struct {
	AccountNumber     json.Number `json:"account_number"`
	Amount            json.Number `json:"amount"`
	DestinationNumber json.Number `json:"destination_number"`
}

func (req apiRequest) form() AccountForm {
	return AccountForm{
		AccountNumber:     req.AccountNumber.String(),
		Amount:            req.Amount.String(),
		DestinationNumber: req.DestinationNumber.String(),
	}
}

// apiAction связывает действие с обработчиком JSON API; номер счета берется из пути
func (c *AccountController) apiAction(do action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, failure(http.StatusBadRequest, "Invalid request body"))
			return
		}

		form := req.form()
		form.AccountNumber = mux.Vars(r)["number"]

		dialog := do(r.Context(), form)
		writeJSON(w, dialog.Status, dialog)
	}
}

// APICreateAccount обрабатывает запрос на создание счета
func (c *AccountController) APICreateAccount(w http.ResponseWriter, r *http.Request) {
	var req apiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(http.StatusBadRequest, "Invalid request body"))
		return
	}

	dialog := c.createAccount(r.Context(), req.form())
	writeJSON(w, dialog.Status, dialog)
}

// APIListAccounts возвращает список всех счетов
func (c *AccountController) APIListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := c.accountService.ListAccounts(r.Context())
	if err != nil {
		dialog := invalidInput(err)
		writeJSON(w, dialog.Status, dialog)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// APIGetAccount возвращает счет по номеру
func (c *AccountController) APIGetAccount(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(http.StatusBadRequest, "Invalid input. Please enter a valid account number."))
		return
	}

	account, err := c.accountService.GetByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, failure(http.StatusNotFound, "Account does not exist!"))
			return
		}
		dialog := invalidInput(err)
		writeJSON(w, dialog.Status, dialog)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Metrics возвращает снимок метрик приложения
func (c *AccountController) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, utils.GetMetrics().GetMetricsSnapshot())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.LogError("encode response: %v", err)
	}
}
