package detector

import (
	"golang.org/x/text/language"
)

// hintKey is "reason" or "reason/variant".
type hintKey string

func keyFor(reason Reason, variant string) hintKey {
	if variant == "" {
		return hintKey(reason)
	}
	return hintKey(string(reason) + "/" + variant)
}

var catalog = map[language.Tag]map[hintKey]string{
	language.English: {
		"login_required":              "The browser session is signed out. Open the browser window, sign in manually (run `linkmcp login` if needed), then retry the operation.",
		"captcha_detected":            "A security challenge is shown. Solve it in the browser window, then retry the operation.",
		"captcha_detected/recaptcha":  "A Google reCAPTCHA challenge is shown. Complete the checkbox or image puzzle in the browser window, then retry.",
		"captcha_detected/hcaptcha":   "An hCaptcha challenge is shown. Complete the puzzle in the browser window, then retry.",
		"captcha_detected/arkose":     "An Arkose Labs (FunCaptcha) puzzle is shown. Complete it in the browser window, then retry.",
		"captcha_detected/checkpoint": "The site is asking for a security checkpoint or identity verification. Complete the verification steps in the browser window, then retry.",
		"rate_limited":                "The site is limiting activity on this account. Pause automation for several hours before retrying.",
		"rate_limited/invitation":     "The weekly invitation limit has been reached. Wait for it to reset before sending more connection requests.",
		"rate_limited/local_budget":   "The local hourly invitation budget is used up. Wait before sending more requests or raise limits.connections_per_hour.",
		"unexpected_ui":               "The page did not have the expected structure. Check the screenshot; the selector table may need an update.",
		"element_not_found":           "A required page element was not found. Check the screenshot and update the selector table if the layout changed.",
		"timeout":                     "The page did not reach the expected state in time. Check the connection and the screenshot, then retry.",
		"navigation_failed":           "Navigation to the requested page failed. Verify the URL and that the site is reachable, then retry.",
		"network_error":               "A network error interrupted the page. Check the internet connection or proxy settings, then retry.",
	},
	language.German: {
		"login_required":    "Die Browsersitzung ist abgemeldet. Melden Sie sich im Browserfenster manuell an und wiederholen Sie den Vorgang.",
		"captcha_detected":  "Eine Sicherheitsabfrage wird angezeigt. Lösen Sie sie im Browserfenster und wiederholen Sie den Vorgang.",
		"rate_limited":      "Die Website begrenzt die Aktivität dieses Kontos. Pausieren Sie die Automatisierung für einige Stunden.",
		"unexpected_ui":     "Die Seite hat nicht die erwartete Struktur. Prüfen Sie den Screenshot; die Selektortabelle muss eventuell angepasst werden.",
		"element_not_found": "Ein benötigtes Seitenelement wurde nicht gefunden. Prüfen Sie den Screenshot und passen Sie die Selektortabelle an.",
		"timeout":           "Die Seite hat den erwarteten Zustand nicht rechtzeitig erreicht. Prüfen Sie die Verbindung und wiederholen Sie den Vorgang.",
		"navigation_failed": "Die Navigation ist fehlgeschlagen. Prüfen Sie die URL und die Erreichbarkeit der Website.",
		"network_error":     "Ein Netzwerkfehler ist aufgetreten. Prüfen Sie die Internetverbindung oder die Proxy-Einstellungen.",
	},
	language.French: {
		"login_required":    "La session du navigateur est déconnectée. Connectez-vous manuellement dans la fenêtre du navigateur, puis réessayez.",
		"captcha_detected":  "Une vérification de sécurité est affichée. Résolvez-la dans la fenêtre du navigateur, puis réessayez.",
		"rate_limited":      "Le site limite l'activité de ce compte. Suspendez l'automatisation pendant plusieurs heures.",
		"unexpected_ui":     "La page n'a pas la structure attendue. Consultez la capture d'écran ; la table des sélecteurs doit peut-être être mise à jour.",
		"element_not_found": "Un élément requis est introuvable. Consultez la capture d'écran et mettez à jour la table des sélecteurs.",
		"timeout":           "La page n'a pas atteint l'état attendu à temps. Vérifiez la connexion, puis réessayez.",
		"navigation_failed": "La navigation a échoué. Vérifiez l'URL et l'accessibilité du site.",
		"network_error":     "Une erreur réseau s'est produite. Vérifiez la connexion Internet ou les paramètres du proxy.",
	},
	language.Spanish: {
		"login_required":    "La sesión del navegador está cerrada. Inicie sesión manualmente en la ventana del navegador y vuelva a intentarlo.",
		"captcha_detected":  "Se muestra una verificación de seguridad. Resuélvala en la ventana del navegador y vuelva a intentarlo.",
		"rate_limited":      "El sitio está limitando la actividad de esta cuenta. Detenga la automatización durante varias horas.",
		"unexpected_ui":     "La página no tiene la estructura esperada. Revise la captura; puede que haya que actualizar la tabla de selectores.",
		"element_not_found": "No se encontró un elemento necesario. Revise la captura y actualice la tabla de selectores.",
		"timeout":           "La página no alcanzó el estado esperado a tiempo. Compruebe la conexión y vuelva a intentarlo.",
		"navigation_failed": "La navegación falló. Verifique la URL y que el sitio sea accesible.",
		"network_error":     "Se produjo un error de red. Compruebe la conexión a Internet o la configuración del proxy.",
	},
}

var supported = []language.Tag{language.English, language.German, language.French, language.Spanish}

var matcher = language.NewMatcher(supported)

// Hints resolves remediation text for a reason in the operator's locale,
// falling back to English.
type Hints struct {
	tag language.Tag
}

// NewHints picks the closest supported locale for a BCP 47 string such as
// "de-AT". Unparseable input selects English.
func NewHints(locale string) *Hints {
	tag := language.English
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Hints{tag: tag}
}

// Locale returns the selected catalog language.
func (h *Hints) Locale() language.Tag { return h.tag }

// For returns the most specific hint available: localized variant, localized
// reason, English variant, English reason.
func (h *Hints) For(reason Reason, variant string) string {
	local := catalog[h.tag]
	english := catalog[language.English]
	candidates := []struct {
		table map[hintKey]string
		key   hintKey
	}{
		{local, keyFor(reason, variant)},
		{local, keyFor(reason, "")},
		{english, keyFor(reason, variant)},
		{english, keyFor(reason, "")},
	}
	for _, c := range candidates {
		if text, ok := c.table[c.key]; ok {
			return text
		}
	}
	return "Automation stopped: " + string(reason) + ". Inspect the browser window before retrying."
}

// Problem builds a Problem with its hint filled in.
func (h *Hints) Problem(reason Reason, variant, detail string) *Problem {
	return &Problem{
		Reason:  reason,
		Variant: variant,
		Hint:    h.For(reason, variant),
		Detail:  detail,
	}
}
