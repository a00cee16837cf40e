package auth

import (
	"fmt"
	"strings"
)

// ShowCookieExtractionGuide displays step-by-step instructions for extracting
// session cookies from a logged-in browser.
func ShowCookieExtractionGuide(platform, homeURL string) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("COOKIE EXTRACTION GUIDE (%s)\n", platform)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("The crawler needs a logged-in browser session to access the platform API.")
	fmt.Println("Follow these steps to extract the cookies from your browser:")
	fmt.Println()

	fmt.Println("STEP 1: Open the platform in your browser")
	fmt.Printf("   - Go to %s\n", homeURL)
	fmt.Println("   - Log in with your account (QR code or phone number)")
	fmt.Println("   - Make sure you can see the logged-in home page")
	fmt.Println()

	fmt.Println("STEP 2: Open Developer Tools")
	fmt.Println("   - Chrome/Edge/Brave: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   - Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println()

	fmt.Println("STEP 3: Go to the Network tab")
	fmt.Println("   - Click on the 'Network' tab in Developer Tools")
	fmt.Println("   - If it's empty, refresh the page (F5)")
	fmt.Println()

	fmt.Println("STEP 4: Copy the Cookie header")
	fmt.Println("   1. Click any request to the platform's domain")
	fmt.Println("   2. Go to the 'Headers' section")
	fmt.Println("   3. Scroll to 'Request Headers'")
	fmt.Println("   4. Copy the full value of the 'Cookie:' line")
	fmt.Println()

	fmt.Println("TIPS:")
	fmt.Println("   - Copy the ENTIRE header value, semicolons included")
	fmt.Println("   - Session cookies expire, so you may need to refresh them periodically")
	fmt.Println("   - Use a secondary account for crawling")
	fmt.Println()

	fmt.Println("SECURITY WARNING:")
	fmt.Println("   - These cookies give FULL access to your account")
	fmt.Println("   - NEVER share them with anyone")
	fmt.Println("   - Store them with 'mediacrawl auth login' so they are encrypted")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\nQuick guide: F12 -> Network tab -> Refresh -> click any platform request -> Headers -> Cookie")
	fmt.Println("   Paste the full Cookie header value when prompted")
}
