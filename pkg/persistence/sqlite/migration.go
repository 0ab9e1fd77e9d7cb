package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE templates (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				number_of_days_to_run INTEGER NOT NULL CHECK (number_of_days_to_run >= 1),
				time_of_day_to_run TEXT NOT NULL,
				number_of_emails INTEGER NOT NULL DEFAULT 0,
				number_of_calls INTEGER NOT NULL DEFAULT 0,
				number_of_whatsapp_messages INTEGER NOT NULL DEFAULT 0,
				metadata TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_templates_title ON templates(title);

			CREATE TABLE plans (
				id TEXT PRIMARY KEY,
				template_id TEXT NOT NULL DEFAULT '',
				template_snapshot TEXT,
				start_date TIMESTAMP NOT NULL,
				timezone TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('scheduled', 'in_progress', 'completed', 'failed')),
				todo TEXT NOT NULL DEFAULT '[]',
				metadata TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_plans_status ON plans(status);
			CREATE INDEX idx_plans_template_id ON plans(template_id);
			CREATE INDEX idx_plans_created_at ON plans(created_at);
		`,
		2: `
			CREATE TABLE leads (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				timezone TEXT NOT NULL DEFAULT '',
				company_id TEXT NOT NULL DEFAULT '',
				company_name TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_leads_company_id ON leads(company_id);
			CREATE INDEX idx_leads_company_name ON leads(company_name);
		`,
	}
}
