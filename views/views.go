// Package views holds the default presentation of every page type and
// admin screen. Sites replace individual entries of the returned ViewFuncs
// to customize their templates.
package views

import "github.com/eringen/pubsite"

// Default returns the built-in views.
func Default() pubsite.ViewFuncs {
	return pubsite.ViewFuncs{
		Home:         Home,
		BlogIndex:    BlogIndex,
		BlogPost:     BlogPost,
		BlogTagIndex: BlogTagIndex,
		Portfolio:    Portfolio,
		Form:         Form,
		FormLanding:  FormLanding,
		Search:       Search,

		AdminLogin:       AdminLogin,
		AdminDashboard:   AdminDashboard,
		AdminPageForm:    AdminPageForm,
		AdminImages:      AdminImages,
		AdminAuthors:     AdminAuthors,
		AdminSettings:    AdminSettings,
		AdminSubmissions: AdminSubmissions,

		NotFound:    NotFound,
		ServerError: ServerError,
	}
}
