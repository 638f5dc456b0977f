package main

import (
	"appdist_backend/internal/app"
)

func main() {
	app.Run()
}
