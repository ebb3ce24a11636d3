package output

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"strings"
	"unicode/utf16"
)

// AppID identifies crashwatch notifications to the notification center.
const AppID = "Crashwatch_Application_Error_Notification"

// AppDisplayName is shown as the notification source.
const AppDisplayName = "Application Error Notification"

// toastXML returns a short-lived generic toast carrying body as its text.
func toastXML(body string) string {
	var sb strings.Builder
	sb.WriteString(`<toast duration="short"><visual><binding template="ToastGeneric"><text>`)
	xml.EscapeText(&sb, []byte(body))
	sb.WriteString(`</text></binding></visual></toast>`)
	return sb.String()
}

// psQuote quotes s as a single-quoted PowerShell string literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// toastScript returns a PowerShell script that shows body under appID.
func toastScript(appID, body string) string {
	return strings.Join([]string{
		`[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null`,
		`[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null`,
		`$xml = New-Object Windows.Data.Xml.Dom.XmlDocument`,
		`$xml.LoadXml(` + psQuote(toastXML(body)) + `)`,
		`$toast = New-Object Windows.UI.Notifications.ToastNotification $xml`,
		`$toast.ExpiresOnReboot = $true`,
		`[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(` + psQuote(appID) + `).Show($toast)`,
	}, "\n")
}

// clearHistoryScript returns a PowerShell script removing every
// notification posted under appID from the notification center.
func clearHistoryScript(appID string) string {
	return strings.Join([]string{
		`[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null`,
		`[Windows.UI.Notifications.ToastNotificationManager]::History.Clear(` + psQuote(appID) + `)`,
	}, "\n")
}

// encodePowerShell encodes script for powershell -EncodedCommand, which
// takes base64 of UTF-16LE.
func encodePowerShell(script string) string {
	units := utf16.Encode([]rune(script))
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}
	return base64.StdEncoding.EncodeToString(buf)
}
