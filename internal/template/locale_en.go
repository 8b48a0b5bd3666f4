package template

// English template set. The default locale ships every key.
var localeEN = map[string]source{
	"welcome_free_credit": {
		Subject: "Welcome to VitaCall – Your Health Advisory Platform",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.first_name}},</p>
<p>Welcome to VitaCall! We're excited to have you join our health advisory platform.</p>
<p>You can now book consultations with trusted doctors from various specialties – anytime, from anywhere.</p>
<ul>
<li>Complete your health profile (takes less than 5 minutes).</li>
<li>Upload any relevant medical records.</li>
<li>Choose your preferred doctor and consultation time.</li>
</ul>
<p><a href="{{.profile_link}}">Complete My Health Profile</a></p>
<p>Thank you for trusting VitaCall.</p>
</div>`,
		Text: `Dear {{.first_name}},

Welcome to VitaCall! You can now book consultations with trusted doctors from various specialties.

Complete your health profile: {{.profile_link}}

Thank you for trusting VitaCall.`,
	},

	"welcome_doctor": {
		Subject: "Welcome to VitaCall – Let's Start Helping Patients",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear Dr. {{.last_name}},</p>
<p>We're pleased to welcome you to the VitaCall platform. Thank you for joining our network of healthcare professionals.</p>
<ul>
<li>Log in and review your profile.</li>
<li>Set your availability.</li>
<li>Review the consultation guidelines.</li>
</ul>
<p>Your profile is now live, and patients can begin scheduling appointments with you.</p>
<p><a href="{{.dashboard_link}}">Go to My Dashboard</a></p>
</div>`,
		Text: `Dear Dr. {{.last_name}},

Welcome to VitaCall. Your profile is now live, and patients can begin scheduling appointments with you.

Dashboard: {{.dashboard_link}}`,
	},

	"profile_reminder": {
		Subject: "Complete Your VitaCall Health Profile Before Your First Consultation",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Hi {{.first_name}},</p>
<p>We noticed that you haven't completed your health profile yet.</p>
<p>Completing it helps doctors better understand your needs and offer more personalized advice. It only takes a few minutes.</p>
<p><a href="{{.profile_link}}">Complete My Health Profile</a></p>
<p>If you've already completed your profile, feel free to ignore this message.</p>
</div>`,
		Text: `Hi {{.first_name}},

You haven't completed your health profile yet. It only takes a few minutes and helps doctors offer more personalized advice.

Complete it here: {{.profile_link}}`,
	},

	"booking_confirmation": {
		Subject: "Your Consultation is Confirmed – VitaCall",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.patient_first_name}},</p>
<p>Your consultation has been successfully booked.</p>
<div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px;">
<p><strong>Date &amp; Time:</strong> {{.appointment_datetime_local}}</p>
<p><strong>Doctor:</strong> {{.doctor_name}}{{if .doctor_specialization}} ({{.doctor_specialization}}){{end}}</p>
<p><strong>Join Link:</strong> <a href="{{.join_link}}">Secure Consultation Link</a></p>
{{if .price}}<p><strong>Consultation Fee:</strong> {{.price}}</p>{{end}}
</div>
<p>Please log in 2–5 minutes before the scheduled time and ensure your audio/video is working properly.</p>
{{if .attachment_note}}<p>{{.attachment_note}}</p>{{end}}
<p>If you need to reschedule or cancel, please use your patient dashboard.</p>
<p>Thank you for choosing VitaCall.</p>
</div>`,
		Text: `Dear {{.patient_first_name}},

Your consultation has been successfully booked.

Date & Time: {{.appointment_datetime_local}}
Doctor: {{.doctor_name}}{{if .doctor_specialization}} ({{.doctor_specialization}}){{end}}
Join link: {{.join_link}}

Please log in 2-5 minutes before the scheduled time.

Thank you for choosing VitaCall.`,
	},

	"booking_reminder_24h": {
		Subject: "Reminder – Your VitaCall Consultation is Coming Up",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Hi {{.patient_first_name}},</p>
<p>This is a friendly reminder that your consultation is scheduled for:</p>
<div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px;">
<p>{{.appointment_datetime_local}}</p>
<p>{{.doctor_name}}</p>
<p>Join here: <a href="{{.join_link}}">Secure Link</a></p>
</div>
<p>Please ensure you're in a quiet space with a stable internet connection.</p>
</div>`,
		Text: `Hi {{.patient_first_name}},

Reminder: your consultation with {{.doctor_name}} is scheduled for {{.appointment_datetime_local}}.

Join here: {{.join_link}}`,
	},

	"doctor_upcoming_1h": {
		Subject: "Upcoming consultation in 1 hour",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>You have a consultation with {{.patient_name}} at {{.appointment_datetime_local}} (in about 1 hour).</p>
{{if .join_link}}<p><a href="{{.join_link}}">Join the consultation</a></p>{{end}}
</div>`,
		Text: `You have a consultation with {{.patient_name}} at {{.appointment_datetime_local}} (in about 1 hour).{{if .join_link}}

Join: {{.join_link}}{{end}}`,
	},

	"cancellation_confirmation": {
		Subject: "Your Consultation Has Been Cancelled",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.patient_first_name}},</p>
<p>We confirm that your consultation with {{.doctor_name}} scheduled for {{.appointment_datetime_local}} has been cancelled.</p>
{{if .refund_amount}}<p><strong>Refund Amount:</strong> {{.refund_amount}}. Your refund will be processed within 3–5 business days.</p>{{end}}
<p>If this was a mistake, you may reschedule directly from your dashboard.</p>
</div>`,
		Text: `Dear {{.patient_first_name}},

Your consultation with {{.doctor_name}} scheduled for {{.appointment_datetime_local}} has been cancelled.{{if .refund_amount}}

Refund amount: {{.refund_amount}} (processed within 3-5 business days).{{end}}`,
	},

	"reschedule_confirmation": {
		Subject: "Your Consultation Has Been Rescheduled",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Hi {{.patient_first_name}},</p>
<p>Your consultation has been successfully rescheduled.</p>
<div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px;">
<p><strong>New Date &amp; Time:</strong> {{.appointment_datetime_local}}</p>
<p><strong>Doctor:</strong> {{.doctor_name}}</p>
<p><strong>Updated Join Link:</strong> <a href="{{.join_link}}">Link</a></p>
</div>
<p>We look forward to seeing you online.</p>
</div>`,
		Text: `Hi {{.patient_first_name}},

Your consultation has been rescheduled.

New date & time: {{.appointment_datetime_local}}
Doctor: {{.doctor_name}}
Join link: {{.join_link}}`,
	},

	"post_call_survey": {
		Subject: "How was your consultation with {{.doctor_name}}?",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Hi {{.patient_first_name}},</p>
<p>Thank you for completing your consultation with {{.doctor_name}}.</p>
<p>Your feedback helps us improve our service. Please take a moment to rate your experience:</p>
<p><a href="{{.review_link}}">Rate Your Experience</a></p>
<p>Thank you for choosing VitaCall.</p>
</div>`,
		Text: `Hi {{.patient_first_name}},

Thank you for completing your consultation with {{.doctor_name}}. Please rate your experience: {{.review_link}}`,
	},

	"doctor_no_show_patient": {
		Subject: "We're Sorry – Your Doctor Was Unable to Join",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.patient_first_name}},</p>
<p>We sincerely apologize that {{.doctor_name}} was unable to join your scheduled consultation.</p>
<ul>
<li>Your payment will be fully refunded within 3–5 business days.</li>
<li>You can reschedule with any available doctor at no additional cost.</li>
</ul>
<p><a href="{{.booking_link}}">Book Another Consultation</a></p>
<p>We deeply apologize for any inconvenience caused.</p>
</div>`,
		Text: `Dear {{.patient_first_name}},

We sincerely apologize that {{.doctor_name}} was unable to join your scheduled consultation. Your payment will be fully refunded within 3-5 business days, and you can reschedule at no additional cost.`,
	},

	"password_reset": {
		Subject: "Reset Your VitaCall Password",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.first_name}},</p>
<p>We received a request to reset your password for your VitaCall account.</p>
<p>Click the link below to reset your password. This link will expire in 24 hours.</p>
<p><a href="{{.reset_link}}">Reset My Password</a></p>
<p>If you didn't request this password reset, you can safely ignore this email; your password will remain unchanged.</p>
</div>`,
		Text: `Dear {{.first_name}},

We received a request to reset your VitaCall password. This link expires in 24 hours:

{{.reset_link}}

If you didn't request this, you can safely ignore this email.`,
	},

	// SMS templates: text only.
	"sms_doctor_10m": {
		Text: `Reminder: your consultation starts in 10 minutes. Please join: {{.join_link}}`,
	},

	"sms_patient_5m": {
		Text: `Your consultation with {{.doctor_name}} starts in 5 minutes.{{if .join_link}} Join: {{.join_link}}{{end}}`,
	},
}
