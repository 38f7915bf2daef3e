package main

import "github.com/shouni/go-price-scraper/cmd"

func main() {
	cmd.Execute()
}
