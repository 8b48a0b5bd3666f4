package template

// French template set. Deliberately partial: keys absent here fall back
// to the default locale at resolve time.
var localeFR = map[string]source{
	"booking_confirmation": {
		Subject: "Votre consultation est confirmée – VitaCall",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Bonjour {{.patient_first_name}},</p>
<p>Votre consultation a bien été réservée.</p>
<div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px;">
<p><strong>Date et heure :</strong> {{.appointment_datetime_local}}</p>
<p><strong>Médecin :</strong> {{.doctor_name}}{{if .doctor_specialization}} ({{.doctor_specialization}}){{end}}</p>
<p><strong>Lien de connexion :</strong> <a href="{{.join_link}}">Lien sécurisé</a></p>
{{if .price}}<p><strong>Tarif :</strong> {{.price}}</p>{{end}}
</div>
<p>Merci de vous connecter 2 à 5 minutes avant l'heure prévue et de vérifier votre audio et votre vidéo.</p>
<p>Merci de votre confiance.</p>
</div>`,
		Text: `Bonjour {{.patient_first_name}},

Votre consultation a bien été réservée.

Date et heure : {{.appointment_datetime_local}}
Médecin : {{.doctor_name}}
Lien de connexion : {{.join_link}}

Merci de vous connecter 2 à 5 minutes avant l'heure prévue.`,
	},

	"booking_reminder_24h": {
		Subject: "Rappel – Votre consultation VitaCall approche",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Bonjour {{.patient_first_name}},</p>
<p>Petit rappel : votre consultation est prévue le :</p>
<div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px;">
<p>{{.appointment_datetime_local}}</p>
<p>{{.doctor_name}}</p>
<p>Rejoindre : <a href="{{.join_link}}">Lien sécurisé</a></p>
</div>
<p>Merci de vous installer dans un endroit calme avec une connexion stable.</p>
</div>`,
		Text: `Bonjour {{.patient_first_name}},

Rappel : votre consultation avec {{.doctor_name}} est prévue le {{.appointment_datetime_local}}.

Rejoindre : {{.join_link}}`,
	},

	"cancellation_confirmation": {
		Subject: "Votre consultation a été annulée",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Bonjour {{.patient_first_name}},</p>
<p>Nous confirmons l'annulation de votre consultation avec {{.doctor_name}} prévue le {{.appointment_datetime_local}}.</p>
{{if .refund_amount}}<p><strong>Montant remboursé :</strong> {{.refund_amount}}. Le remboursement sera effectué sous 3 à 5 jours ouvrés.</p>{{end}}
<p>Si c'est une erreur, vous pouvez reprogrammer depuis votre espace patient.</p>
</div>`,
		Text: `Bonjour {{.patient_first_name}},

Votre consultation avec {{.doctor_name}} prévue le {{.appointment_datetime_local}} a été annulée.{{if .refund_amount}}

Montant remboursé : {{.refund_amount}} (sous 3 à 5 jours ouvrés).{{end}}`,
	},
}
