package server

//go:generate swag init -g internal/server/server.go -o docs

// @title Confiable API
// @version 0.1
// @description Risk analysis for online stores and marketplace listings.
// @contact.name Confiable Maintainers
// @contact.url https://github.com/dtoro641/confiable
// @BasePath /
