package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE templates (
				id VARCHAR(255) PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				number_of_days_to_run INT NOT NULL CHECK (number_of_days_to_run >= 1),
				time_of_day_to_run VARCHAR(5) NOT NULL,
				number_of_emails INT NOT NULL DEFAULT 0,
				number_of_calls INT NOT NULL DEFAULT 0,
				number_of_whatsapp_messages INT NOT NULL DEFAULT 0,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_templates_title ON templates(title);

			CREATE TABLE plans (
				id VARCHAR(255) PRIMARY KEY,
				template_id VARCHAR(255) NOT NULL DEFAULT '',
				template_snapshot JSONB,
				start_date TIMESTAMP WITH TIME ZONE NOT NULL,
				timezone VARCHAR(64) NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('scheduled', 'in_progress', 'completed', 'failed')),
				todo JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_plans_status ON plans(status);
			CREATE INDEX idx_plans_template_id ON plans(template_id);
			CREATE INDEX idx_plans_created_at ON plans(created_at);
			CREATE INDEX idx_plans_start_date ON plans(start_date);
		`,
		2: `
			CREATE TABLE leads (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				timezone VARCHAR(64) NOT NULL DEFAULT '',
				company_id VARCHAR(255) NOT NULL DEFAULT '',
				company_name VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_leads_company_id ON leads(company_id);
			CREATE INDEX idx_leads_company_name ON leads(company_name);

			-- person ids inside todo are looked up by the lead association index
			CREATE INDEX idx_plans_todo ON plans USING GIN (todo jsonb_path_ops);
		`,
	}
}
