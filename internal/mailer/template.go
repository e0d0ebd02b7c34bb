// Package mailer sends the admission thank-you email over SMTP.
package mailer

import (
	"fmt"
	"html/template"
	"strings"
)

// Subject is the thank-you email subject line.
const Subject = "Thank You for Your Interest in Brookfield International School"

var htmlTemplate = template.Must(template.New("thankyou").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; background-color: #f4f4f4; font-family: Arial, sans-serif;">
    <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #f4f4f4; padding: 40px 20px;">
        <tr>
            <td align="center">
                <table width="600" cellpadding="0" cellspacing="0" style="background-color: #ffffff; border-radius: 8px; max-width: 100%;">
                    <tr>
                        <td style="padding: 40px 30px; color: #333333; line-height: 1.7;">
                            <p>Dear <strong>{{.ParentName}}</strong>,</p>
                            <p>Thank you for submitting your inquiry and showing interest in <strong>Brookfield International School, New Chandigarh</strong>. We appreciate the time you have taken to learn more about our institution.</p>
                            <p>Our Admissions Team will reach out to you shortly to guide you through the admission process for {{.StudentName}}.</p>
                            <p><strong>Contact Us:</strong><br>
                            Phone: +91-9066790662<br>
                            Email: info@bfis.in<br>
                            Website: https://www.bfis.in/</p>
                            <p>Warm regards,<br>
                            <strong>Admissions Office</strong><br>
                            Brookfield International School, New Chandigarh</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`))

// thankYouHTML renders the HTML body. An absent student name reads as
// "your child".
func thankYouHTML(parentName, studentName string) string {
	student := template.HTML("your child")
	if studentName != "" {
		student = template.HTML("<strong>" + template.HTMLEscapeString(studentName) + "</strong>")
	}

	var b strings.Builder
	data := struct {
		ParentName  string
		StudentName template.HTML
	}{ParentName: parentName, StudentName: student}
	if err := htmlTemplate.Execute(&b, data); err != nil {
		// The template is static; execution cannot fail on string data.
		return thankYouText(parentName, studentName)
	}
	return b.String()
}

// thankYouText renders the plain-text alternative body.
func thankYouText(parentName, studentName string) string {
	student := studentName
	if student == "" {
		student = "your child"
	}

	return fmt.Sprintf(`Dear %s,

Thank you for submitting your inquiry and showing interest in Brookfield International School, New Chandigarh. We appreciate the time you have taken to learn more about our institution.

Our Admissions Team will reach out to you shortly to guide you through the admission process for %s.

Contact Us:
Phone: +91-9066790662
Email: info@bfis.in
Website: https://www.bfis.in/

Warm regards,
Admissions Office
Brookfield International School, New Chandigarh`, parentName, student)
}
