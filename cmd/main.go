// cmd/main.go
package main

import (
	"github.com/amitsahu629/bankingapp/app"
)

// @title           Banking Ledger API
// @version         1.0
// @description     Ledger service recording deposits, withdrawals and transfers between accounts.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
func main() {
	app.Run()
}
